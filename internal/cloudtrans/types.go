package cloudtrans

import "fmt"

// TranslateRequest is the v2 translate request body
type TranslateRequest struct {
	Q      []string `json:"q"`
	Target string   `json:"target"`
	Source string   `json:"source,omitempty"`
	Format string   `json:"format,omitempty"`
}

// TranslateResponse is the v2 translate response body
type TranslateResponse struct {
	Data struct {
		Translations []Translation `json:"translations"`
	} `json:"data"`
	Error *APIError `json:"error,omitempty"`
}

type Translation struct {
	TranslatedText         string `json:"translatedText"`
	DetectedSourceLanguage string `json:"detectedSourceLanguage,omitempty"`
}

// APIError is the error object returned by Google APIs
type APIError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Status  string `json:"status,omitempty"`
}

func (e *APIError) Error() string {
	if e.Status != "" {
		return fmt.Sprintf("API error %d (%s): %s", e.Code, e.Status, e.Message)
	}
	return fmt.Sprintf("API error %d: %s", e.Code, e.Message)
}

func (r *TranslateResponse) apiError(status int, body []byte) error {
	if r.Error != nil && r.Error.Message != "" {
		return r.Error
	}
	return fmt.Errorf("API request failed with status %d: %s", status, string(body))
}
