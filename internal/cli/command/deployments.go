package command

import (
	"net/url"
	"sort"
	"strconv"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/zonemesh-go/internal/cli/connection"
	"github.com/yndnr/zonemesh-go/internal/cli/output"
	"github.com/yndnr/zonemesh-go/internal/server/httpserver/handler"
)

// DeploymentsCommand returns the deployments subcommand group. All of its
// commands must be pointed at a controller.
func DeploymentsCommand() *cli.Command {
	return &cli.Command{
		Name:    "deployments",
		Aliases: []string{"deploy"},
		Usage:   "Inspect and change zone deployments on the controller",
		Subcommands: []*cli.Command{
			{
				Name:   "list",
				Usage:  "List the deployment of every zone",
				Action: listDeployments,
			},
			{
				Name:      "get",
				Usage:     "Show the deployment of one zone",
				ArgsUsage: "<zone>",
				Action:    getDeployment,
			},
			{
				Name:      "set",
				Usage:     "Replace the deployment of a zone and push it to the zone",
				ArgsUsage: "<zone> <unit>...",
				Action:    setDeployment,
			},
			{
				Name:      "metadata",
				Usage:     "Collect transport metadata from the runtimes of a zone",
				ArgsUsage: "<zone>",
				Flags: []cli.Flag{
					&cli.DurationFlag{
						Name:  "wait",
						Usage: "How long the controller waits for replies (controller default when unset)",
					},
				},
				Action: zoneMetadata,
			},
		},
	}
}

func zoneArg(c *cli.Context) (string, error) {
	zone := c.Args().First()
	if zone == "" {
		return "", cli.Exit("zone argument is required", 2)
	}
	return zone, nil
}

func listDeployments(c *cli.Context) error {
	client, ctx, cancel := newClient(c)
	defer cancel()

	resp, err := client.Get(ctx, "/v1/deployments")
	if err != nil {
		return err
	}
	var out []handler.DeploymentInfo
	if err := connection.ParseResponse(resp, &out); err != nil {
		return err
	}
	return render(c, deploymentList(out))
}

func getDeployment(c *cli.Context) error {
	zone, err := zoneArg(c)
	if err != nil {
		return err
	}
	client, ctx, cancel := newClient(c)
	defer cancel()

	resp, err := client.Get(ctx, "/v1/deployments/"+url.PathEscape(zone))
	if err != nil {
		return err
	}
	var d handler.DeploymentInfo
	if err := connection.ParseResponse(resp, &d); err != nil {
		return err
	}
	return render(c, deploymentList{d})
}

func setDeployment(c *cli.Context) error {
	zone, err := zoneArg(c)
	if err != nil {
		return err
	}
	units := c.Args().Tail()
	if len(units) == 0 {
		return cli.Exit("at least one unit is required", 2)
	}
	client, ctx, cancel := newClient(c)
	defer cancel()

	resp, err := client.Put(ctx, "/v1/deployments/"+url.PathEscape(zone), handler.DeployRequest{Units: units})
	if err != nil {
		return err
	}
	var d handler.DeploymentInfo
	if err := connection.ParseResponse(resp, &d); err != nil {
		return err
	}
	return render(c, deploymentList{d})
}

func zoneMetadata(c *cli.Context) error {
	zone, err := zoneArg(c)
	if err != nil {
		return err
	}
	client, ctx, cancel := newClient(c)
	defer cancel()

	path := "/v1/zones/" + url.PathEscape(zone) + "/metadata"
	if wait := c.Duration("wait"); wait > 0 {
		path += "?timeout=" + url.QueryEscape(wait.String())
	}
	resp, err := client.Get(ctx, path)
	if err != nil {
		return err
	}
	var out []metadataEntry
	if err := connection.ParseResponse(resp, &out); err != nil {
		return err
	}
	return render(c, metadataList(out))
}

type deploymentList []handler.DeploymentInfo

func (l deploymentList) Table(wide bool) *output.Table {
	t := &output.Table{Headers: []string{"ZONE", "REVISION", "UNITS"}}
	for _, d := range l {
		units := strconv.Itoa(len(d.Units))
		if wide {
			units = output.Cell(d.Units)
		}
		t.AddRow(d.Zone, strconv.FormatUint(d.Revision, 10), units)
	}
	return t
}

type metadataEntry struct {
	Zone              string            `json:"zone"`
	TransportMetadata map[string]string `json:"transport_metadata,omitempty"`
}

type metadataList []metadataEntry

func (l metadataList) Table(bool) *output.Table {
	t := &output.Table{Headers: []string{"#", "ZONE", "KEY", "VALUE"}}
	for i, e := range l {
		idx := strconv.Itoa(i)
		if len(e.TransportMetadata) == 0 {
			t.AddRow(idx, e.Zone, "-", "-")
			continue
		}
		keys := make([]string, 0, len(e.TransportMetadata))
		for k := range e.TransportMetadata {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			t.AddRow(idx, e.Zone, k, e.TransportMetadata[k])
		}
	}
	return t
}
