package conf

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/joho/godotenv"
)

// LoadDotEnv reads .env into the process environment if the file exists.
func LoadDotEnv() error {
	err := godotenv.Load()
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to load .env file: %w", err)
	}
	return nil
}

// Load builds the configuration. When SSM_PATH is set, parameters under
// SSM_PATH/APP_ENV override environment variables of the same name.
func Load(ctx context.Context, ssmClient ssm.GetParametersByPathAPIClient) (*Config, error) {
	params := map[string]string{}
	if path := parameterPath(); path != "" && ssmClient != nil {
		var err error
		params, err = fetchParameters(ctx, ssmClient, path)
		if err != nil {
			return nil, err
		}
		slog.Default().With("module", "conf").Info("loaded parameters from ssm",
			"path", path, "count", len(params))
	}
	return build(params)
}

// LoadFromEnvironment is the process startup path: .env, AWS config,
// SSM parameters, validation.
func LoadFromEnvironment(ctx context.Context) (*Config, aws.Config, error) {
	cfg, awsCfg, err := LoadUnvalidated(ctx)
	if err != nil {
		return nil, aws.Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, aws.Config{}, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, awsCfg, nil
}

// LoadUnvalidated is LoadFromEnvironment without the final Validate.
func LoadUnvalidated(ctx context.Context) (*Config, aws.Config, error) {
	if err := LoadDotEnv(); err != nil {
		return nil, aws.Config{}, err
	}

	region := os.Getenv("AWS_REGION")
	if region == "" {
		region = os.Getenv("REGION")
	}
	awsCfg, err := LoadAwsConfig(ctx, region)
	if err != nil {
		return nil, aws.Config{}, err
	}

	var ssmClient ssm.GetParametersByPathAPIClient
	if parameterPath() != "" {
		ssmClient = ssm.NewFromConfig(awsCfg)
	}
	cfg, err := Load(ctx, ssmClient)
	if err != nil {
		return nil, aws.Config{}, err
	}
	if cfg.AwsRegion != "" && cfg.AwsRegion != awsCfg.Region {
		awsCfg.Region = cfg.AwsRegion
	}
	return cfg, awsCfg, nil
}

func parameterPath() string {
	base := strings.TrimRight(os.Getenv("SSM_PATH"), "/")
	if base == "" {
		return ""
	}
	if env := appEnv(); env != "" {
		return base + "/" + env
	}
	return base
}

func fetchParameters(ctx context.Context, client ssm.GetParametersByPathAPIClient, path string) (map[string]string, error) {
	params := map[string]string{}
	paginator := ssm.NewGetParametersByPathPaginator(client, &ssm.GetParametersByPathInput{
		Path:           aws.String(path),
		Recursive:      aws.Bool(true),
		WithDecryption: aws.Bool(true),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to get parameters by path %s: %w", path, err)
		}
		for _, p := range page.Parameters {
			name := aws.ToString(p.Name)
			params[name[strings.LastIndex(name, "/")+1:]] = aws.ToString(p.Value)
		}
	}
	return params, nil
}
