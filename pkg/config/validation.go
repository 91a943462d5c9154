package config

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

// validate is the singleton validator instance.
var validate *validator.Validate

func init() {
	validate = validator.New()
}

// Validate checks the configuration using struct tags plus the handful of
// cross-field rules tags cannot express.
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		return formatValidationError(err)
	}
	return validateCustomRules(cfg)
}

// validateCustomRules performs validation beyond struct tags.
func validateCustomRules(cfg *Config) error {
	if cfg.Table.Type == "badger" {
		path, _ := cfg.Table.Badger["path"].(string)
		inMemory, _ := cfg.Table.Badger["in_memory"].(bool)
		if path == "" && !inMemory {
			return fmt.Errorf("table.badger: path is required unless in_memory is set")
		}
	}

	if cfg.Objects.Type == "s3" {
		if bucket, _ := cfg.Objects.S3["bucket"].(string); bucket == "" {
			return fmt.Errorf("objects.s3: bucket is required")
		}
		if region, _ := cfg.Objects.S3["region"].(string); region == "" {
			return fmt.Errorf("objects.s3: region is required")
		}
	}

	return nil
}

// formatValidationError converts validator errors into readable messages.
func formatValidationError(err error) error {
	if validationErrs, ok := err.(validator.ValidationErrors); ok && len(validationErrs) > 0 {
		e := validationErrs[0]
		return fmt.Errorf("%s: validation failed on '%s' tag (value: %v)",
			e.Namespace(), e.Tag(), e.Value())
	}
	return err
}
