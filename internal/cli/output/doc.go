// Package output renders command results as tables, JSON or YAML.
//
// Table output is meant for people and JSON or YAML for scripts. Types that
// know their own tabular layout implement Tabular; everything else falls
// back to a generic field/value rendering.
package output
