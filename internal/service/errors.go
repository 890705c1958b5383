package service

import (
	"errors"
	"fmt"
	"strings"

	"github.com/MimeLyc/subtitle-trans/internal/backend"
	"github.com/MimeLyc/subtitle-trans/pkg/log"
)

// ErrorType classifies file pipeline failures
type ErrorType int

const (
	ErrUnknown ErrorType = iota
	ErrFileNotFound
	ErrFileRead
	ErrFileWrite
	ErrParse
	ErrTranslation
	ErrConfig
)

// FileError is returned for a file that could not be translated
type FileError struct {
	Type    ErrorType
	Path    string
	Message string
	Cause   error
}

func NewFileError(errorType ErrorType, path, message string) *FileError {
	return &FileError{
		Type:    errorType,
		Path:    path,
		Message: message,
	}
}

func WrapFileError(err error, errorType ErrorType, path, message string) *FileError {
	e := NewFileError(errorType, path, message)
	e.Cause = err
	return e
}

func (e *FileError) Error() string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("[%s] %s", e.Type, e.Message))
	if e.Path != "" {
		b.WriteString(fmt.Sprintf(" (%s)", e.Path))
	}
	if e.Cause != nil {
		b.WriteString(fmt.Sprintf(": %v", e.Cause))
	}
	return b.String()
}

func (e *FileError) Unwrap() error {
	return e.Cause
}

func (t ErrorType) String() string {
	switch t {
	case ErrFileNotFound:
		return "FileNotFound"
	case ErrFileRead:
		return "FileRead"
	case ErrFileWrite:
		return "FileWrite"
	case ErrParse:
		return "Parse"
	case ErrTranslation:
		return "Translation"
	case ErrConfig:
		return "Config"
	default:
		return "Unknown"
	}
}

// IsErrorType reports whether err is a FileError of the given type
func IsErrorType(err error, errorType ErrorType) bool {
	var fe *FileError
	if errors.As(err, &fe) {
		return fe.Type == errorType
	}
	return false
}

// Advice returns error handling advice for err
func Advice(err error) string {
	var fe *FileError
	if !errors.As(err, &fe) {
		return backend.Advice(err)
	}

	switch fe.Type {
	case ErrFileNotFound:
		return "Please check that the path is correct and the file exists with read permissions"
	case ErrFileRead:
		return "Please check file permissions and verify the file is not corrupted"
	case ErrFileWrite:
		return "Please ensure the output directory exists and has write permissions"
	case ErrParse:
		return "Please verify the file is in SRT format"
	case ErrTranslation:
		return backend.Advice(fe.Cause)
	case ErrConfig:
		return "Please check the configuration file and environment variables"
	default:
		return "Please review the detailed error and check relevant configuration and files"
	}
}

// HandleError logs err together with its advice
func HandleError(logger *log.Logger, err error) {
	if err == nil {
		return
	}
	logger.Error("Error Detail: %v\n advice: %s", err, Advice(err))
}
