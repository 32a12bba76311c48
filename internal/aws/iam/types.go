package iam

import "time"

type IAMPolicy struct {
	Name            string
	PolicyID        string
	ARN             string
	Path            string
	AttachmentCount int
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

type IAMAttachedPolicy struct {
	Name string
	ARN  string
}
