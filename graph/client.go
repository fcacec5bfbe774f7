// Package graph provides the authenticated Microsoft Graph collaborator for
// the calbatch tool: credential selection, client construction against the
// configured national cloud, per-item request builders, and the batch
// executor that submits keyed request sets through the Graph $batch
// endpoint.
//
// Authentication uses Azure AD client credentials (application permissions)
// via azidentity, either with a client secret or with a PFX certificate
// file. The Graph SDK handles token caching and refresh behind the
// credential.
//
// Required Graph API application permissions:
//   - Calendars.ReadWrite (create, list and delete events in user calendars)
//   - User.Read.All (address specific user mailboxes)
package graph

import (
	"crypto"
	"crypto/x509"
	"fmt"
	"os"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	azcloud "github.com/Azure/azure-sdk-for-go/sdk/azcore/cloud"
	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	abstractions "github.com/microsoft/kiota-abstractions-go"
	msgraphsdk "github.com/microsoftgraph/msgraph-sdk-go"
	"golang.org/x/crypto/pkcs12"
)

// Config carries the credential and endpoint configuration for one Graph
// client. Exactly one of ClientSecret or PfxPath must be set; the cli layer
// validates this before construction.
type Config struct {
	TenantID     string
	ClientID     string
	ClientSecret string
	PfxPath      string
	PfxPassword  string

	// Cloud selects the national cloud: "public", "usgov" or "china".
	// Empty means public.
	Cloud string
}

// Client wraps an authenticated GraphServiceClient together with its
// request adapter. It implements both calendar.RequestFactory and
// calendar.Executor.
type Client struct {
	sdk     *msgraphsdk.GraphServiceClient
	adapter abstractions.RequestAdapter
}

// endpoint describes one national cloud deployment of Microsoft Graph.
type endpoint struct {
	cloud azcloud.Configuration
	host  string
}

func cloudEndpoint(name string) (endpoint, error) {
	switch name {
	case "", "public":
		return endpoint{cloud: azcloud.AzurePublic, host: "https://graph.microsoft.com"}, nil
	case "usgov":
		return endpoint{cloud: azcloud.AzureGovernment, host: "https://graph.microsoft.us"}, nil
	case "china":
		return endpoint{cloud: azcloud.AzureChina, host: "https://microsoftgraph.chinacloudapi.cn"}, nil
	default:
		return endpoint{}, fmt.Errorf("unknown cloud %q", name)
	}
}

// NewClient builds an authenticated Graph client for the configured cloud.
// No network activity happens here; the first token request is issued
// lazily with the first batch submission.
func NewClient(config Config) (*Client, error) {
	ep, err := cloudEndpoint(config.Cloud)
	if err != nil {
		return nil, err
	}

	cred, err := newCredential(config, ep)
	if err != nil {
		return nil, fmt.Errorf("authentication setup failed: %w", err)
	}

	sdk, err := msgraphsdk.NewGraphServiceClientWithCredentials(cred, []string{ep.host + "/.default"})
	if err != nil {
		return nil, fmt.Errorf("graph client initialization failed: %w", err)
	}

	adapter := sdk.GetAdapter()
	adapter.SetBaseUrl(ep.host + "/v1.0")

	return &Client{sdk: sdk, adapter: adapter}, nil
}

// newCredential selects the authentication method from the configuration:
// client secret first, PFX certificate file second.
func newCredential(config Config, ep endpoint) (azcore.TokenCredential, error) {
	clientOptions := azcore.ClientOptions{Cloud: ep.cloud}

	if config.ClientSecret != "" {
		return azidentity.NewClientSecretCredential(
			config.TenantID,
			config.ClientID,
			config.ClientSecret,
			&azidentity.ClientSecretCredentialOptions{ClientOptions: clientOptions},
		)
	}

	if config.PfxPath != "" {
		pfxData, err := os.ReadFile(config.PfxPath)
		if err != nil {
			return nil, fmt.Errorf("reading PFX file: %w", err)
		}
		return certificateCredential(config, pfxData, clientOptions)
	}

	return nil, fmt.Errorf("no authentication method configured (client secret or PFX certificate required)")
}

func certificateCredential(config Config, pfxData []byte, clientOptions azcore.ClientOptions) (azcore.TokenCredential, error) {
	key, cert, err := pkcs12.Decode(pfxData, config.PfxPassword)
	if err != nil {
		return nil, fmt.Errorf("decoding PFX: %w", err)
	}
	privateKey, ok := key.(crypto.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("decoded PFX key is not a usable private key")
	}

	return azidentity.NewClientCertificateCredential(
		config.TenantID,
		config.ClientID,
		[]*x509.Certificate{cert},
		privateKey,
		&azidentity.ClientCertificateCredentialOptions{
			ClientOptions:        clientOptions,
			SendCertificateChain: true,
		},
	)
}
