package sagemaker

type Domain struct {
	DomainID string
	Name     string
	Status   string // InService, Pending, Deleting, Failed, ...
}
