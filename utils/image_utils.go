package utils

import (
	"errors"
	"strings"
)

const storageHost = "https://storage.googleapis.com/"

var ErrNotStorageObject = errors.New("not an object in the image bucket")

// ExtractObjectPath returns the bucket object path of a public storage URL,
// provided the object lives under folder. URLs that point elsewhere, such as
// images linked from another site, return ErrNotStorageObject.
func ExtractObjectPath(imageURL, folder string) (string, error) {
	rest, ok := strings.CutPrefix(imageURL, storageHost)
	if !ok {
		return "", ErrNotStorageObject
	}
	_, objectPath, ok := strings.Cut(rest, "/")
	if !ok || !strings.HasPrefix(objectPath, folder+"/") || len(objectPath) == len(folder)+1 {
		return "", ErrNotStorageObject
	}
	if strings.Contains(objectPath, "..") {
		return "", ErrNotStorageObject
	}
	return objectPath, nil
}
