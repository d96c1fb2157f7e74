package helper

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

const gateway = "https://gateway.pinata.cloud/ipfs/"

func TestIsUrl(t *testing.T) {
	assert.True(t, IsUrl("https://example.com/1.json"))
	assert.True(t, IsUrl("ipfs://QmYwAPJzv5CZsnA625s3Xf2nemtYgPpHdWEz79ojWnPbdG"))
	assert.False(t, IsUrl("not a url"))
	assert.False(t, IsUrl("/relative/path"))
}

func TestResolveIpfs(t *testing.T) {
	tests := []struct {
		uri      string
		expected string
	}{
		{"ipfs://QmYwAPJzv5CZsnA625s3Xf2nemtYgPpHdWEz79ojWnPbdG", gateway + "QmYwAPJzv5CZsnA625s3Xf2nemtYgPpHdWEz79ojWnPbdG"},
		{"ipfs://ipfs/QmYwAPJzv5CZsnA625s3Xf2nemtYgPpHdWEz79ojWnPbdG/1.json", gateway + "QmYwAPJzv5CZsnA625s3Xf2nemtYgPpHdWEz79ojWnPbdG/1.json"},
		{"https://ipfs.infura.io/ipfs/QmYwAPJzv5CZsnA625s3Xf2nemtYgPpHdWEz79ojWnPbdG", gateway + "QmYwAPJzv5CZsnA625s3Xf2nemtYgPpHdWEz79ojWnPbdG"},
		{"https://example.com/1.json", "https://example.com/1.json"},
	}

	for _, tt := range tests {
		t.Run(tt.uri, func(t *testing.T) {
			assert.Equal(t, tt.expected, ResolveIpfs(tt.uri, gateway))
		})
	}
}

func TestResolveIpfsAddsGatewaySlash(t *testing.T) {
	assert.Equal(t, "http://localhost:8080/ipfs/abc", ResolveIpfs("ipfs://abc", "http://localhost:8080/ipfs"))
}
