package apisession

import (
	"fmt"

	"github.com/fivetwenty-io/paycore/internal/constants"
	"github.com/fivetwenty-io/paycore/internal/encoding"
	corehttp "github.com/fivetwenty-io/paycore/internal/http"
	"github.com/fivetwenty-io/paycore/pkg/coreapi"
)

// NewFromConfig creates a session with a static host provider from config.
// Extra options are applied after the configuration.
func NewFromConfig(config *coreapi.Config, opts ...Option) (*Session, error) {
	configOpts := []Option{
		WithHeadersFactory(coreapi.DefaultHeadersFactory{
			UserAgent: config.UserAgent,
			Languages: config.Languages,
		}),
		WithDefaultHeaders(coreapi.NewHeaders(config.Headers)),
		WithIssuerClaim(config.IssuerClaim()),
		WithDebug(config.Debug),
	}

	if config.Log.GetSink() != nil {
		configOpts = append(configOpts, WithLogger(config.Log))
	}

	if config.SigningKey != "" {
		key, err := encoding.DecodeSigningKey(config.SigningKey)
		if err != nil {
			return nil, fmt.Errorf("invalid signing key: %w", err)
		}

		configOpts = append(configOpts, WithSigningKey(key))
	}

	if config.SkipTLSVerify {
		httpClient, err := corehttp.NewInsecureHTTPClient()
		if err != nil {
			return nil, err
		}

		configOpts = append(configOpts, WithHTTPClient(httpClient))
	}

	if config.HTTPTimeout > 0 {
		configOpts = append(configOpts, WithTimeout(config.HTTPTimeout))
	}

	if config.RetryMax > 0 {
		waitMin, waitMax := config.RetryWaitMin, config.RetryWaitMax
		if waitMin <= 0 {
			waitMin = constants.DefaultRetryWaitMin
		}

		if waitMax <= 0 {
			waitMax = constants.DefaultRetryWaitMax
		}

		configOpts = append(configOpts, WithRetryConfig(config.RetryMax, waitMin, waitMax))
	}

	if config.TraceLogger != nil {
		configOpts = append(configOpts, WithTraceLogger(config.TraceLogger))
	}

	return New(coreapi.NewStaticHostProvider(config.Hosts), append(configOpts, opts...)...), nil
}
