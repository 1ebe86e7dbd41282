package auth

import "golang.org/x/oauth2/clientcredentials"

// Conf represents the credentials used to reach the statistics API. A static
// Token takes precedence over the client credentials flow.
type Conf struct {
	Token        string `json:"token"`
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret"`
	TokenURL     string `json:"token_url"`
}

func (c *Conf) toOauth2Config() clientcredentials.Config {
	return clientcredentials.Config{
		ClientID:     c.ClientID,
		ClientSecret: c.ClientSecret,
		TokenURL:     c.TokenURL,
	}
}
