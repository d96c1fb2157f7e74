package helper

import (
	"net/url"
	"regexp"
	"strings"
)

var cidRegex = regexp.MustCompile("((Qm[1-9A-HJ-NP-Za-km-z]{44}|bafy[a-z2-7]{52,}).*$)")

func IsUrl(uri string) bool {
	u, err := url.Parse(uri)
	return err == nil && u.Scheme != "" && u.Host != ""
}

func IsIpfs(uri string) bool {
	if strings.HasPrefix(uri, "ipfs://") {
		return true
	}

	return cidRegex.MatchString(uri)
}

// ResolveIpfs rewrites an ipfs uri, or any uri embedding a CID, onto the
// gateway. Other uris are returned unchanged.
func ResolveIpfs(uri, gateway string) string {
	if !IsIpfs(uri) {
		return uri
	}
	if !strings.HasSuffix(gateway, "/") {
		gateway += "/"
	}

	if strings.HasPrefix(uri, "ipfs://") {
		path := strings.TrimPrefix(uri, "ipfs://")
		path = strings.TrimPrefix(path, "ipfs/")
		return gateway + path
	}

	parts := cidRegex.FindStringSubmatch(uri)
	return gateway + parts[1]
}
