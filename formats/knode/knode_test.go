package knode_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thacuber2a03/construct/formats/knode"
)

func sampleNode() *knode.Node {
	return &knode.Node{
		Version:            1,
		InputRootPosition:  knode.Position{X: 0, Y: 0},
		OutputRootPosition: knode.Position{X: 10, Y: -20},
		Nodes:              []string{"prototypes/gate"},
		Types:              []string{"builtin-type:number"},
		Instances: []knode.Instance{
			{
				Key:      1,
				Type:     0,
				Name:     "n1",
				Position: knode.Position{X: 5, Y: -5},
				Sockets: []knode.Socket{
					{Type: "outgoing-named", ValueType: 0, PortSlot: 0},
					{Type: "incoming-text", ValueType: 0, PortSlot: 1, Value: "hello"},
					{Type: "incoming-number", ValueType: 0, PortSlot: 2, Connected: true, ConnectedNode: 3, ConnectedSocket: 4},
				},
			},
		},
	}
}

func TestBuildThenParseRoundTrips(t *testing.T) {
	n := sampleNode()
	data, err := knode.Build(n)
	require.NoError(t, err)
	require.True(t, len(data) > len(knode.MagicNumber))

	got, err := knode.ParseFromSlice(data)
	require.NoError(t, err)
	assert.Equal(t, n, got)
}

func TestParseRejectsBadMagic(t *testing.T) {
	_, err := knode.ParseFromSlice([]byte("not-a-knode-file-at-all-00"))
	require.Error(t, err)
}

func TestParseRejectsFutureVersion(t *testing.T) {
	n := sampleNode()
	data, err := knode.Build(n)
	require.NoError(t, err)
	data[len(knode.MagicNumber)] = knode.LatestVersion + 1

	_, err = knode.ParseFromSlice(data)
	require.Error(t, err)
}
