package command

import (
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strconv"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/zonemesh-go/internal/cli/connection"
	"github.com/yndnr/zonemesh-go/internal/cli/output"
	"github.com/yndnr/zonemesh-go/internal/server/httpserver/handler"
)

// StatusCommand prints the membership view of a node.
func StatusCommand() *cli.Command {
	return &cli.Command{
		Name:    "status",
		Aliases: []string{"view"},
		Usage:   "Show the membership view of a node",
		Action:  showStatus,
	}
}

// HealthCommand checks readiness of a node.
func HealthCommand() *cli.Command {
	return &cli.Command{
		Name:   "health",
		Usage:  "Check whether a node is ready",
		Action: checkHealth,
	}
}

func showStatus(c *cli.Context) error {
	client, ctx, cancel := newClient(c)
	defer cancel()

	resp, err := client.Get(ctx, "/v1/view")
	if err != nil {
		return err
	}
	var v handler.ViewResponse
	if err := connection.ParseResponse(resp, &v); err != nil {
		return err
	}
	return render(c, viewOutput(v))
}

type readiness struct {
	Ready bool   `json:"ready"`
	State string `json:"state"`
	Time  string `json:"time"`
}

func checkHealth(c *cli.Context) error {
	client, ctx, cancel := newClient(c)
	defer cancel()

	resp, err := client.Get(ctx, "/ready")
	if err != nil {
		return err
	}

	var r readiness
	err = connection.ParseResponse(resp, &r)
	var apiErr *connection.APIError
	if errors.As(err, &apiErr) && apiErr.Status == http.StatusServiceUnavailable && r.State != "" {
		err = nil
	}
	if err != nil {
		return err
	}
	if err := render(c, r); err != nil {
		return err
	}
	if !r.Ready {
		return cli.Exit(fmt.Sprintf("node is not ready (%s)", r.State), 1)
	}
	return nil
}

// viewOutput renders a view as one row per member in seniority order.
type viewOutput handler.ViewResponse

func (v viewOutput) Table(wide bool) *output.Table {
	leaderOf := make(map[string]string, len(v.Leaders))
	for zone, name := range v.Leaders {
		leaderOf[name] = zone
	}

	t := &output.Table{Headers: []string{"#", "ROLE", "ZONE", "INSTANCE", "FLAGS"}}
	if wide {
		t.Headers = append(t.Headers, "NAME")
	}

	members := append([]handler.MemberInfo(nil), v.Members...)
	sort.SliceStable(members, func(i, j int) bool { return members[i].Seniority < members[j].Seniority })
	for _, m := range members {
		var flags []string
		if m.Name == v.Local {
			flags = append(flags, "local")
		}
		if m.Name == v.Controller {
			flags = append(flags, "controller")
		}
		if _, ok := leaderOf[m.Name]; ok {
			flags = append(flags, "leader")
		}
		if m.Legacy {
			flags = append(flags, "legacy")
		}
		row := []string{strconv.Itoa(m.Seniority), output.Cell(m.Role), output.Cell(m.Zone), output.Cell(m.InstanceID), output.Cell(flags)}
		if wide {
			row = append(row, m.Name)
		}
		t.AddRow(row...)
	}
	return t
}
