package transport

import "net/url"

// Mode selects how a strategy turns a target into a request and decodes the answer.
type Mode int

const (
	// ModeDirect requests the target itself.
	ModeDirect Mode = iota
	// ModeEnvelope requests a proxy answering {"contents": ..., "status": {"http_code": n}}.
	ModeEnvelope
	// ModeRaw requests a proxy relaying the target body unchanged.
	ModeRaw
)

func (m Mode) String() string {
	switch m {
	case ModeDirect:
		return "direct"
	case ModeEnvelope:
		return "envelope"
	case ModeRaw:
		return "raw"
	default:
		return "unknown"
	}
}

// Strategy is one step of the fallback chain.
type Strategy struct {
	Name string
	Mode Mode
	// Base is the proxy prefix; the escaped target is appended to it.
	Base string
}

// Direct fetches the target without a proxy.
func Direct() Strategy {
	return Strategy{Name: "direct", Mode: ModeDirect}
}

// Envelope fetches through a JSON-wrapping proxy such as allorigins /get.
func Envelope(base string) Strategy {
	return Strategy{Name: "primary", Mode: ModeEnvelope, Base: base}
}

// Raw fetches through a pass-through proxy such as allorigins /raw.
func Raw(base string) Strategy {
	return Strategy{Name: "secondary", Mode: ModeRaw, Base: base}
}

// Chain builds the direct, primary, secondary chain, skipping proxies with an empty base.
func Chain(primaryBase, secondaryBase string) []Strategy {
	chain := []Strategy{Direct()}
	if primaryBase != "" {
		chain = append(chain, Envelope(primaryBase))
	}
	if secondaryBase != "" {
		chain = append(chain, Raw(secondaryBase))
	}
	return chain
}

// RequestURL is the URL actually requested for target.
func (s Strategy) RequestURL(target string) string {
	if s.Mode == ModeDirect {
		return target
	}
	return s.Base + url.QueryEscape(target)
}
