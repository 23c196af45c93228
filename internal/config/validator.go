package config

import (
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	agentpipelineerrors "github.com/agentpipeline/agentpipeline/pkg/errors"
)

var (
	validatorOnce sync.Once
	validateInst  *validator.Validate

	semverPattern    = regexp.MustCompile(`^\d+\.\d+(?:\.\d+)?(?:-[0-9A-Za-z-.]+)?(?:\+[0-9A-Za-z-.]+)?$`)
	stageNamePattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)
)

func validatorInstance() *validator.Validate {
	validatorOnce.Do(func() {
		v := validator.New()

		_ = v.RegisterValidation("semver", func(fl validator.FieldLevel) bool {
			return semverPattern.MatchString(fl.Field().String())
		})

		_ = v.RegisterValidation("stage_name", func(fl validator.FieldLevel) bool {
			return stageNamePattern.MatchString(fl.Field().String())
		})

		validateInst = v
	})

	return validateInst
}

// ValidateConfig performs schema and cross-field validation on the raw
// configuration, independent of the stricter business rules applied later by
// domain.PipelineConfig.Validate (duplicate stage names, dependency cycles,
// and unknown dependency references are left to that pass).
func ValidateConfig(cfg *Config) error {
	if cfg == nil {
		return agentpipelineerrors.NewValidationError("config", "configuration is nil", nil)
	}

	v := validatorInstance()
	if err := v.Struct(cfg); err != nil {
		return convertValidationError(err)
	}

	for i, stage := range cfg.Stages {
		if err := validateStage(stage, i); err != nil {
			return err
		}
	}

	return nil
}

func validateStage(stage Stage, index int) error {
	v := validatorInstance()
	if err := v.Struct(stage); err != nil {
		return convertValidationError(err)
	}
	for _, dep := range stage.DependsOn {
		if dep == stage.Name {
			return agentpipelineerrors.NewValidationError(fieldForStage(index, "depends_on"), fmt.Sprintf("stage %q cannot depend on itself", stage.Name), nil)
		}
	}
	return nil
}

func convertValidationError(err error) error {
	if err == nil {
		return nil
	}

	if ves, ok := err.(validator.ValidationErrors); ok {
		ve := ves[0]
		field := yamlishFieldName(ve)
		msg := fmt.Sprintf("%s failed validation for tag '%s'", field, ve.Tag())
		return agentpipelineerrors.NewValidationError(field, msg, err)
	}

	return agentpipelineerrors.NewValidationError("config", err.Error(), err)
}

func yamlishFieldName(fe validator.FieldError) string {
	ns := fe.StructNamespace()
	parts := strings.Split(ns, ".")
	lowered := make([]string, 0, len(parts))
	for _, part := range parts {
		lowered = append(lowered, strings.ToLower(part))
	}
	return strings.Join(lowered, ".")
}

func fieldForStage(index int, field string) string {
	return fmt.Sprintf("stages[%d].%s", index, field)
}
