// Package config provides configuration management for the FX Optimizer application.
package config

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
)

const (
	errLoadAWSConfig           = "failed to load AWS config: %w"
	errGetSecretFromAWSSecrets = "failed to get secret from AWS Secrets Manager: %w"
	errParseSecretJSON         = "failed to parse secret JSON: %w"
	errNoSecretDataFound       = "no secret data found in AWS Secrets Manager"
)

// SecretsOverlay represents the structure of secrets stored in AWS Secrets Manager
type SecretsOverlay struct {
	DatabasePassword string `json:"database_password"`
	OracleAPIKey     string `json:"oracle_api_key"`
	DataSourceAPIKey string `json:"data_source_api_key"`
}

// fetchSecretsFromAWS retrieves secrets from AWS Secrets Manager
func fetchSecretsFromAWS(ctx context.Context, region string, secretName string) (*SecretsOverlay, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf(errLoadAWSConfig, err)
	}

	client := secretsmanager.NewFromConfig(awsCfg)
	input := &secretsmanager.GetSecretValueInput{
		SecretId: aws.String(secretName),
	}

	result, err := client.GetSecretValue(ctx, input)
	if err != nil {
		return nil, fmt.Errorf(errGetSecretFromAWSSecrets, err)
	}

	return parseSecretData(result)
}

// parseSecretData extracts the secrets overlay from the AWS response payload
func parseSecretData(result *secretsmanager.GetSecretValueOutput) (*SecretsOverlay, error) {
	var raw []byte
	switch {
	case result.SecretString != nil:
		raw = []byte(*result.SecretString)
	case len(result.SecretBinary) > 0:
		raw = result.SecretBinary
	default:
		return nil, fmt.Errorf(errNoSecretDataFound)
	}

	secrets := &SecretsOverlay{}
	if err := json.Unmarshal(raw, secrets); err != nil {
		return nil, fmt.Errorf(errParseSecretJSON, err)
	}
	return secrets, nil
}

// LoadSecretsFromAWS overlays sensitive values from AWS Secrets Manager onto
// the configuration. Empty secret fields leave the config value untouched
func LoadSecretsFromAWS(cfg *Config, region string, secretName string) error {
	secrets, err := fetchSecretsFromAWS(context.Background(), region, secretName)
	if err != nil {
		return err
	}

	if secrets.DatabasePassword != "" {
		cfg.Database.Password = secrets.DatabasePassword
	}
	if secrets.OracleAPIKey != "" {
		cfg.OracleService.APIKey = secrets.OracleAPIKey
	}
	if secrets.DataSourceAPIKey != "" {
		cfg.DataSource.RESTAPIKey = secrets.DataSourceAPIKey
	}

	return nil
}
