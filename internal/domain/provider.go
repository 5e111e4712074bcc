package domain

// Provider identifies an external OAuth identity provider
type Provider string

const (
	ProviderFacebook Provider = "facebook"
	ProviderGitHub   Provider = "github"
	ProviderGoogle   Provider = "google"
	ProviderSteam    Provider = "steam"
)

// Valid reports whether p is one of the supported providers
func (p Provider) Valid() bool {
	switch p {
	case ProviderFacebook, ProviderGitHub, ProviderGoogle, ProviderSteam:
		return true
	}
	return false
}

func (p Provider) String() string {
	return string(p)
}
