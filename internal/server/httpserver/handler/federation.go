package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/yndnr/zonemesh-go/internal/federation/command"
	"github.com/yndnr/zonemesh-go/internal/federation/zone"
)

// maxDeployBody caps PUT /v1/deployments bodies.
const maxDeployBody = 1 << 20

// handleView handles GET /v1/view.
func (h *Handler) handleView(w http.ResponseWriter, r *http.Request) {
	v := h.cfg.View()
	if v == nil {
		h.writeError(w, r, http.StatusServiceUnavailable, "ZM-MSG-5030", "no membership view yet", nil)
		return
	}

	resp := ViewResponse{
		Local:   h.cfg.LocalName,
		ViewID:  v.ID(),
		Members: make([]MemberInfo, 0, v.Len()),
	}
	for i, m := range v.Members() {
		info := MemberInfo{Name: m.Name, Legacy: m.Identity.Legacy(), Seniority: i}
		if !info.Legacy {
			info.Role = string(m.Identity.Role)
			info.Zone = m.Identity.Zone
			info.InstanceID = m.Identity.InstanceID
		}
		resp.Members = append(resp.Members, info)
	}
	if c, ok := zone.ControllerOf(v); ok {
		resp.Controller = c.Name
	}
	if leaders := zone.Leaders(v); len(leaders) > 0 {
		resp.Leaders = make(map[string]string, len(leaders))
		for z, m := range leaders {
			resp.Leaders[z] = m.Name
		}
	}
	h.writeJSON(w, r, http.StatusOK, resp)
}

// handleListDeployments handles GET /v1/deployments.
func (h *Handler) handleListDeployments(w http.ResponseWriter, r *http.Request) {
	zones := h.cfg.Deployments.Zones()
	out := make([]DeploymentInfo, 0, len(zones))
	for _, z := range zones {
		out = append(out, deploymentInfo(h.cfg.Deployments.Get(z)))
	}
	h.writeJSON(w, r, http.StatusOK, out)
}

// handleGetDeployment handles GET /v1/deployments/{zone}.
func (h *Handler) handleGetDeployment(w http.ResponseWriter, r *http.Request) {
	z := r.PathValue("zone")
	h.writeJSON(w, r, http.StatusOK, deploymentInfo(h.cfg.Deployments.Get(z)))
}

// handleDeploy handles PUT /v1/deployments/{zone}.
func (h *Handler) handleDeploy(w http.ResponseWriter, r *http.Request) {
	z := r.PathValue("zone")
	if z == "" || strings.Contains(z, ":") {
		h.writeError(w, r, http.StatusBadRequest, "ZM-ARG-1001", "invalid zone name", nil)
		return
	}

	var req DeployRequest
	body := io.LimitReader(r.Body, maxDeployBody)
	if err := json.NewDecoder(body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		h.writeError(w, r, http.StatusBadRequest, "ZM-ARG-1001", "invalid request body", err.Error())
		return
	}

	units := make([]command.Unit, 0, len(req.Units))
	for _, name := range req.Units {
		if name == "" {
			h.writeError(w, r, http.StatusBadRequest, "ZM-ARG-1001", "unit names must not be empty", nil)
			return
		}
		units = append(units, command.Unit{Name: name})
	}

	d, err := h.cfg.Controller.Deploy(r.Context(), z, units)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	h.logger.Info("deployment updated", "zone", z, "revision", d.Revision, "units", len(d.Units))
	h.writeJSON(w, r, http.StatusOK, deploymentInfo(d))
}

// handleZoneMetadata handles GET /v1/zones/{zone}/metadata. The optional
// timeout query parameter (a Go duration) overrides MetadataTimeout.
func (h *Handler) handleZoneMetadata(w http.ResponseWriter, r *http.Request) {
	z := r.PathValue("zone")
	timeout := h.cfg.MetadataTimeout
	if raw := r.URL.Query().Get("timeout"); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil || d <= 0 {
			h.writeError(w, r, http.StatusBadRequest, "ZM-ARG-1001", "invalid timeout", raw)
			return
		}
		timeout = d
	}
	resps, err := h.cfg.Controller.ZoneMetadata(r.Context(), z, timeout)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	if resps == nil {
		resps = []*command.ZoneMetadataResponse{}
	}
	h.writeJSON(w, r, http.StatusOK, resps)
}

func deploymentInfo(d *command.DeploymentCommand) DeploymentInfo {
	info := DeploymentInfo{Zone: d.Zone, Revision: d.Revision, Units: make([]string, 0, len(d.Units))}
	for _, u := range d.Units {
		info.Units = append(info.Units, u.Name)
	}
	return info
}
