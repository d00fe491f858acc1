package gateway

import "fmt"

type IntegrationMode int

const (
	HostedRedirect IntegrationMode = iota + 1
	HostedModal
	HostedEmbedded
	Direct
)

var modeNames = map[IntegrationMode]string{
	HostedRedirect: "hosted",
	HostedModal:    "hosted_modal",
	HostedEmbedded: "hosted_embedded",
	Direct:         "direct",
}

// ParseIntegrationMode maps a configured integration type to its mode.
func ParseIntegrationMode(s string) (IntegrationMode, error) {
	for mode, name := range modeNames {
		if name == s {
			return mode, nil
		}
	}
	return 0, fmt.Errorf("unknown integration type %q", s)
}

func (m IntegrationMode) String() string {
	if name, ok := modeNames[m]; ok {
		return name
	}
	return "unknown"
}

// Hosted reports whether the gateway renders the card entry form.
func (m IntegrationMode) Hosted() bool {
	return m == HostedRedirect || m == HostedModal || m == HostedEmbedded
}
