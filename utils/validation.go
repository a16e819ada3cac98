package utils

import (
	"errors"
	"fmt"
	"mime/multipart"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"
)

// ImageTypes are the content types accepted for product and slider images.
var ImageTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/webp": true,
	"image/gif":  true,
}

const MaxUploadSize = 5 << 20

// ValidateFileUpload rejects product and slider images over MaxUploadSize or
// of a type not in ImageTypes.
func ValidateFileUpload(fh *multipart.FileHeader) error {
	if fh.Size > MaxUploadSize {
		return fmt.Errorf("file size %d bytes exceeds maximum allowed size of %dMB", fh.Size, MaxUploadSize>>20)
	}
	contentType := fh.Header.Get("Content-Type")
	if !ImageTypes[contentType] {
		return fmt.Errorf("invalid file type %q; upload a JPEG, PNG, WebP or GIF image", contentType)
	}
	return nil
}

// jsonName turns a Go field name into the snake_case key clients send,
// so CustomerEmail reads as customer_email.
func jsonName(field string) string {
	var b strings.Builder
	runes := []rune(field)
	for i, r := range runes {
		if unicode.IsUpper(r) {
			if i > 0 && (unicode.IsLower(runes[i-1]) || (i+1 < len(runes) && unicode.IsLower(runes[i+1]))) {
				b.WriteByte('_')
			}
			r = unicode.ToLower(r)
		}
		b.WriteRune(r)
	}
	return b.String()
}

// SanitizeValidationError turns binding errors into a message naming the
// request fields, without Go struct names.
func SanitizeValidationError(err error) string {
	if err == nil {
		return ""
	}

	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return "Invalid request body"
	}

	messages := make([]string, 0, len(validationErrors))
	for _, fe := range validationErrors {
		field := jsonName(fe.Field())
		switch fe.Tag() {
		case "required":
			messages = append(messages, field+" is required")
		case "email":
			messages = append(messages, field+" must be a valid email address")
		case "url":
			messages = append(messages, field+" must be a valid URL")
		case "uuid":
			messages = append(messages, field+" must be a valid id")
		case "min":
			messages = append(messages, fmt.Sprintf("%s must be at least %s characters", field, fe.Param()))
		case "max":
			messages = append(messages, fmt.Sprintf("%s must be at most %s characters", field, fe.Param()))
		case "len":
			messages = append(messages, fmt.Sprintf("%s must be %s characters", field, fe.Param()))
		case "gte":
			messages = append(messages, fmt.Sprintf("%s must be at least %s", field, fe.Param()))
		case "oneof":
			messages = append(messages, fmt.Sprintf("%s must be one of: %s", field, strings.ReplaceAll(fe.Param(), " ", ", ")))
		default:
			messages = append(messages, field+" is invalid")
		}
	}
	if len(messages) == 0 {
		return "Invalid request body"
	}
	return strings.Join(messages, "; ")
}
