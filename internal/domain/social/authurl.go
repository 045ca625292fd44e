package social

import "net/url"

// BuildAuthorizeURL constructs the platform's OAuth authorization URL from
// stored credentials. The state parameter carries the platform name so the
// callback can tell which provider answered.
func BuildAuthorizeURL(p Platform, creds Credentials) (string, error) {
	profile, err := ProfileFor(p)
	if err != nil {
		return "", err
	}

	params := url.Values{}
	params.Set(profile.ClientIDParam, creds.ClientID)
	params.Set("redirect_uri", creds.RedirectURI)
	params.Set("response_type", "code")
	params.Set("scope", profile.Scope)
	params.Set("state", string(p))

	return profile.AuthorizeURL + "?" + params.Encode(), nil
}
