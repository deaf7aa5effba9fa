package deployer

import (
	"context"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/rs/zerolog"
)

// SecretRef binds a container environment name to a parameter store ARN.
type SecretRef struct {
	Name      string
	ValueFrom string
}

// SecretResolver turns parameter names into secret references. Lookups are
// best effort: a parameter that cannot be fetched is logged and skipped.
type SecretResolver struct {
	logger zerolog.Logger
	ssm    SSMAPI
}

// NewSecretResolver creates a new SecretResolver.
func NewSecretResolver(logger zerolog.Logger, ssmAPI SSMAPI) *SecretResolver {
	return &SecretResolver{
		logger: logger.With().Str("component", "secret-resolver").Logger(),
		ssm:    ssmAPI,
	}
}

// Resolve returns references for every parameter that could be fetched, in
// the order given.
func (r *SecretResolver) Resolve(ctx context.Context, names []string) []SecretRef {
	refs := make([]SecretRef, 0, len(names))
	for _, name := range names {
		out, err := r.ssm.GetParameter(ctx, &ssm.GetParameterInput{
			Name:           aws.String(name),
			WithDecryption: aws.Bool(true),
		})
		if err != nil {
			r.logger.Warn().Err(err).Str("code", APIErrorCode(err)).Str("parameter", name).Msg("could not fetch parameter, omitting it")
			continue
		}
		if out.Parameter == nil || aws.ToString(out.Parameter.ARN) == "" {
			r.logger.Warn().Str("parameter", name).Msg("parameter has no ARN, omitting it")
			continue
		}
		refs = append(refs, SecretRef{
			Name:      SecretEnvName(name),
			ValueFrom: aws.ToString(out.Parameter.ARN),
		})
	}
	return refs
}

// SecretEnvName derives the environment variable name from the last path
// segment of a parameter name: "/prod/api/db-password" -> "DB_PASSWORD".
func SecretEnvName(param string) string {
	if i := strings.LastIndex(param, "/"); i >= 0 {
		param = param[i+1:]
	}
	return strings.ToUpper(strings.ReplaceAll(param, "-", "_"))
}
