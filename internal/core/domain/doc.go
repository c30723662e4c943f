// Package domain defines the error taxonomy shared by the federation layer.
//
// Every failure that crosses a package boundary is a *DomainError carrying a
// stable code. Callers classify failures with errors.Is against the exported
// sentinels (ErrTimeout, ErrControllerNotFound, ...), which compare by code,
// so details and causes can be attached freely without breaking matching.
package domain
