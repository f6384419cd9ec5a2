package courseapi

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/mod/semver"
)

// MinAPIVersion is the oldest backend API this client understands.
const MinAPIVersion = "v1.0.0"

type versionResponse struct {
	APIVersion string `json:"api_version"`
}

// CheckVersion asks the backend for its API version and fails with
// *IncompatibleVersionError when it is older than MinAPIVersion.
// A backend without a version endpoint is assumed compatible.
func (c *Client) CheckVersion(ctx context.Context) (string, error) {
	p := "/version/"
	body, err := c.get(ctx, p, nil)
	if err != nil {
		if isNotFound(err) {
			return "", nil
		}
		return "", err
	}

	var vr versionResponse
	if err := decode(p, body, &vr); err != nil {
		return "", err
	}

	v := normalizeVersion(vr.APIVersion)
	if !semver.IsValid(v) {
		return "", &InvalidPayloadError{Path: p, Content: body, Err: fmt.Errorf("invalid version %q", vr.APIVersion)}
	}
	if semver.Compare(v, MinAPIVersion) < 0 {
		return v, &IncompatibleVersionError{Server: v, Minimum: MinAPIVersion}
	}
	return v, nil
}

// normalizeVersion accepts "1.2.3" and "v1.2.3".
func normalizeVersion(v string) string {
	v = strings.TrimSpace(v)
	if v != "" && !strings.HasPrefix(v, "v") {
		v = "v" + v
	}
	return v
}
