package modem

import "fmt"

// Endpoint is one configured modem. Device is nil while the modem is not
// reachable or not yet initialised.
type Endpoint struct {
	Host   string
	Title  string
	Device any
}

// Info describes a live modem for discovery listings.
type Info struct {
	Host  string `json:"host"`
	Title string `json:"title"`
}

// Registry holds the configured modem endpoints in configuration order.
type Registry struct {
	endpoints []Endpoint
}

// NewRegistry returns a registry over the given endpoints.
func NewRegistry(endpoints ...Endpoint) *Registry {
	r := &Registry{}
	for _, ep := range endpoints {
		r.Add(ep)
	}
	return r
}

// Add registers an endpoint, replacing any existing one with the same host.
func (r *Registry) Add(ep Endpoint) {
	for i := range r.endpoints {
		if r.endpoints[i].Host == ep.Host {
			r.endpoints[i] = ep
			return
		}
	}
	r.endpoints = append(r.endpoints, ep)
}

// Resolve selects the endpoint for host. An empty host is only accepted when
// exactly one endpoint is configured.
func (r *Registry) Resolve(host string) (Endpoint, error) {
	if len(r.endpoints) == 0 {
		return Endpoint{}, &ConfigurationError{
			Reason: "Netgear LTE integration is not configured. Please set up at least one modem",
		}
	}

	if host == "" {
		if len(r.endpoints) == 1 {
			return loaded(r.endpoints[0])
		}
		return Endpoint{}, &ConfigurationError{
			Reason:         "multiple Netgear LTE modems configured, host parameter is required",
			AvailableHosts: r.hosts(),
		}
	}

	for _, ep := range r.endpoints {
		if ep.Host == host {
			return loaded(ep)
		}
	}
	return Endpoint{}, &ConfigurationError{
		Reason:         fmt.Sprintf("no Netgear LTE modem found at %s", host),
		AvailableHosts: r.hosts(),
	}
}

// Live lists the endpoints that currently have a device attached.
func (r *Registry) Live() []Info {
	out := make([]Info, 0, len(r.endpoints))
	for _, ep := range r.endpoints {
		if ep.Host == "" || ep.Device == nil {
			continue
		}
		out = append(out, Info{Host: ep.Host, Title: ep.Title})
	}
	return out
}

func loaded(ep Endpoint) (Endpoint, error) {
	if ep.Device == nil {
		return Endpoint{}, &ConfigurationError{
			Reason: fmt.Sprintf("Netgear LTE modem at %s is not loaded", ep.Host),
		}
	}
	return ep, nil
}

func (r *Registry) hosts() []string {
	hosts := make([]string, len(r.endpoints))
	for i, ep := range r.endpoints {
		hosts[i] = ep.Host
	}
	return hosts
}
