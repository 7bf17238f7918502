package image

import (
	"errors"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/anoixa/image-store/utils"
	"github.com/anoixa/image-store/utils/format"
	"github.com/anoixa/image-store/utils/validator"
)

// 字段长度限制
const (
	minUserIDLen      = 3
	maxUserIDLen      = 50
	maxImageNameLen   = 255
	maxDescriptionLen = 1000
	maxTags           = 10
	maxTagLen         = 50
	maxNameFilterLen  = 255
)

var userIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

func validateUserID(userID string) error {
	n := utf8.RuneCountInString(userID)
	if n < minUserIDLen || n > maxUserIDLen {
		return invalidf(CodeValidation, "user_id must be %d-%d characters", minUserIDLen, maxUserIDLen)
	}
	if !userIDPattern.MatchString(userID) {
		return invalidf(CodeValidation, "user_id may only contain letters, digits, '_' and '-'")
	}
	return nil
}

// normalizeTags 去空白、去空、按出现顺序去重
func normalizeTags(tags []string) ([]string, error) {
	out := make([]string, 0, len(tags))
	seen := make(map[string]struct{}, len(tags))
	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		if tag == "" {
			continue
		}
		if _, ok := seen[tag]; ok {
			continue
		}
		if utf8.RuneCountInString(tag) > maxTagLen {
			return nil, invalidf(CodeValidation, "each tag must be at most %d characters", maxTagLen)
		}
		seen[tag] = struct{}{}
		out = append(out, tag)
	}
	if len(out) > maxTags {
		return nil, invalidf(CodeValidation, "at most %d tags are allowed", maxTags)
	}
	return out, nil
}

// uploadFields 校验后的上传字段
type uploadFields struct {
	imageName   string
	description string
	tags        []string
	contentType string
}

// validateUpload 在访问任何存储之前完成全部校验
func (s *Service) validateUpload(in UploadInput) (*uploadFields, error) {
	if err := validateUserID(in.UserID); err != nil {
		return nil, err
	}

	name := strings.TrimSpace(in.ImageName)
	if name == "" {
		return nil, invalidf(CodeValidation, "image_name is required")
	}
	if utf8.RuneCountInString(name) > maxImageNameLen {
		return nil, invalidf(CodeValidation, "image_name must be at most %d characters", maxImageNameLen)
	}

	description := strings.TrimSpace(in.Description)
	if utf8.RuneCountInString(description) > maxDescriptionLen {
		return nil, invalidf(CodeValidation, "description must be at most %d characters", maxDescriptionLen)
	}

	tags, err := normalizeTags(in.Tags)
	if err != nil {
		return nil, err
	}

	if len(in.Data) == 0 {
		return nil, invalidf(CodeValidation, "file is empty")
	}
	if s.opts.MaxUploadBytes > 0 && int64(len(in.Data)) > s.opts.MaxUploadBytes {
		return nil, invalidf(CodeFileSizeExceeded, "file exceeds the maximum size of %s", format.HumanReadableSize(s.opts.MaxUploadBytes))
	}

	contentType, err := resolveContentType(in.Data, in.ContentType)
	if err != nil {
		return nil, err
	}

	if s.opts.StrictDecode {
		if _, err := validator.DecodeHeader(in.Data, contentType); err != nil {
			msg := "file content is not a valid image"
			if errors.Is(err, validator.ErrFormatMismatch) {
				msg = "file header does not match its detected format"
			}
			return nil, invalidf(CodeUnsupportedMIME, "%s", msg)
		}
	}

	return &uploadFields{
		imageName:   name,
		description: description,
		tags:        tags,
		contentType: contentType,
	}, nil
}

// resolveContentType 以魔数识别结果为准，声明类型只能与之一致
func resolveContentType(data []byte, declared string) (string, error) {
	detected := validator.DetectImageType(data)
	if detected == "" || !utils.IsAllowedMIME(detected) {
		return "", invalidf(CodeUnsupportedMIME, "unsupported file type; allowed: %s",
			strings.Join(utils.AllowedMIMETypes(), ", "))
	}

	declared = utils.NormalizeMIME(declared)
	if declared == "" {
		return detected, nil
	}
	if declared == "image/jpg" {
		declared = "image/jpeg"
	}
	if !utils.IsAllowedMIME(declared) {
		return "", invalidf(CodeUnsupportedMIME, "content type %q is not allowed", declared)
	}
	if declared != detected {
		return "", invalidf(CodeUnsupportedMIME, "declared content type %s does not match file content (%s)", declared, detected)
	}
	return detected, nil
}
