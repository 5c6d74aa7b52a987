package registry

import (
	"fmt"
)

const TagLatest = "latest"

// Ref identifies a published image: <registry>/<repository>:<tag>.
type Ref struct {
	Registry   string
	Repository string
	Tag        string
}

func (r Ref) String() string {
	var host string
	if r.Registry != "" {
		host = r.Registry + "/"
	}
	if r.Tag == "" {
		return fmt.Sprintf("%s%s", host, r.Repository)
	}
	return fmt.Sprintf("%s%s:%s", host, r.Repository, r.Tag)
}

func (r Ref) WithTag(tag string) Ref {
	r.Tag = tag
	return r
}

// Image is a locally built artifact, addressed by its content id.
type Image struct {
	ID   string
	Size int64
}
