package api

import (
	"fmt"
	"unicode/utf8"

	"github.com/saudijob/jobboard/common"
)

// createJobRequest is the payload accepted by the create endpoint.
type createJobRequest struct {
	Name        string `json:"name"`
	CompanyName string `json:"companyName"`
	Phone       string `json:"phone"`
	Email       string `json:"email"`
	City        string `json:"city"`
	JobRole     string `json:"jobRole"`
	Description string `json:"description"`
	IsUrgent    bool   `json:"isUrgent"`
}

// updateJobRequest is the payload accepted by the update endpoint. Every field
// is optional; absent fields leave the posting unchanged.
type updateJobRequest struct {
	Name        *string `json:"name"`
	CompanyName *string `json:"companyName"`
	Phone       *string `json:"phone"`
	City        *string `json:"city"`
	JobRole     *string `json:"jobRole"`
	Description *string `json:"description"`
	IsUrgent    *bool   `json:"isUrgent"`
}

// fieldReport accumulates field-level validation errors.
type fieldReport map[string][]string

func (r fieldReport) add(field, message string) {
	r[field] = append(r[field], message)
}

// requireMinLen records an error if the value is shorter than the minimum.
func (r fieldReport) requireMinLen(field, value string, min int) {
	if utf8.RuneCountInString(value) < min {
		r.add(field, fmt.Sprintf("must be at least %d characters", min))
	}
}

// validateCreate checks a create payload, returning a field-level report of
// every violation. A nil report means the payload is acceptable.
func validateCreate(request *createJobRequest) map[string][]string {
	report := fieldReport{}
	report.requireMinLen("name", request.Name, 2)
	report.requireMinLen("phone", request.Phone, 6)
	report.requireMinLen("city", request.City, 2)
	report.requireMinLen("jobRole", request.JobRole, 2)
	report.requireMinLen("description", request.Description, 2)
	if err := common.ValidateEmailAddress(request.Email); err != nil {
		report.add("email", "must be a valid email address")
	}
	if len(report) == 0 {
		return nil
	}
	return report
}

// validateUpdate checks an update payload. Only the fields that are present are
// validated.
func validateUpdate(request *updateJobRequest) map[string][]string {
	report := fieldReport{}
	if request.Name != nil {
		report.requireMinLen("name", *request.Name, 2)
	}
	if request.Phone != nil {
		report.requireMinLen("phone", *request.Phone, 6)
	}
	if request.City != nil {
		report.requireMinLen("city", *request.City, 2)
	}
	if request.JobRole != nil {
		report.requireMinLen("jobRole", *request.JobRole, 2)
	}
	if request.Description != nil {
		report.requireMinLen("description", *request.Description, 2)
	}
	if len(report) == 0 {
		return nil
	}
	return report
}
