package efs

type FileSystemInfo struct {
	FileSystemID  string
	Name          string
	CreationToken string // notebook domains use their domain id here
	State         string // creating, available, deleting, ...
	Tags          map[string]string
}

type MountTargetInfo struct {
	MountTargetID string
	FileSystemID  string
	SubnetID      string
	IPAddress     string
	State         string
}
