package storage

import (
	"errors"
	"strings"
)

// ValidateBucketName checks a MinIO/S3 bucket name against the S3 naming rules
func ValidateBucketName(bucketName string) error {
	if len(bucketName) < 3 || len(bucketName) > 63 {
		return errors.New("bucket name must be between 3 and 63 characters")
	}
	if strings.Contains(bucketName, " ") {
		return errors.New("bucket name cannot contain spaces")
	}
	if !isDNSCompatible(bucketName) {
		return errors.New("bucket name must be DNS compliant")
	}
	return nil
}

// isDNSCompatible reports whether name is lowercase letters, digits, dots and
// hyphens, starting and ending with a letter or digit, with no empty labels.
func isDNSCompatible(name string) bool {
	for i, char := range name {
		alnum := (char >= 'a' && char <= 'z') || (char >= '0' && char <= '9')
		if !alnum && char != '-' && char != '.' {
			return false
		}
		if (i == 0 || i == len(name)-1) && !alnum {
			return false
		}
	}
	return !strings.Contains(name, "..")
}
