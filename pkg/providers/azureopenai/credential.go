package azureopenai

import (
	"context"
	"fmt"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"golang.org/x/oauth2"
)

// CognitiveServicesScope is the token audience for Azure OpenAI.
const CognitiveServicesScope = "https://cognitiveservices.azure.com/.default"

// tokenTimeout bounds a single token acquisition. oauth2.TokenSource has no
// context parameter, so the fetch does not see the request's context; the
// request itself stops waiting when its context ends (see modeladapter.Auth).
const tokenTimeout = 30 * time.Second

// CredentialFunc discovers a credential from the ambient environment.
type CredentialFunc func() (azcore.TokenCredential, error)

// DefaultCredential returns azidentity's DefaultAzureCredential, which tries
// environment variables, workload identity, managed identity and developer
// tool logins in turn.
func DefaultCredential() (azcore.TokenCredential, error) {
	return azidentity.NewDefaultAzureCredential(nil)
}

// BearerTokenSource adapts cred to an oauth2.TokenSource for the given
// scopes. Tokens are cached and refreshed shortly before expiry; the returned
// source is safe for concurrent use.
func BearerTokenSource(cred azcore.TokenCredential, scopes ...string) oauth2.TokenSource {
	return oauth2.ReuseTokenSource(nil, &credentialTokenSource{cred: cred, scopes: scopes})
}

type credentialTokenSource struct {
	cred   azcore.TokenCredential
	scopes []string
}

func (s *credentialTokenSource) Token() (*oauth2.Token, error) {
	ctx, cancel := context.WithTimeout(context.Background(), tokenTimeout)
	defer cancel()

	tok, err := s.cred.GetToken(ctx, policy.TokenRequestOptions{Scopes: s.scopes})
	if err != nil {
		return nil, fmt.Errorf("azureopenai: get token: %w", err)
	}

	return &oauth2.Token{
		AccessToken: tok.Token,
		TokenType:   "Bearer",
		Expiry:      tok.ExpiresOn,
	}, nil
}
