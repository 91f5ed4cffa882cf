package service

import "errors"

var (
	// ErrInvalidInput is returned when a request is missing required values
	ErrInvalidInput = errors.New("invalid input")
	// ErrInvalidSort is returned for an unknown recipe sort order
	ErrInvalidSort = errors.New("invalid sort order")
	// ErrInvalidParent is returned when a reply points at a comment of another recipe
	ErrInvalidParent = errors.New("parent comment not found on this recipe")
	// ErrNoPicture is returned when a recipe has no stored picture
	ErrNoPicture = errors.New("recipe has no picture")
	// ErrUnsupportedImage is returned for uploads that are not images
	ErrUnsupportedImage = errors.New("unsupported image type")
)
