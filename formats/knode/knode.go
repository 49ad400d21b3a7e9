// Package knode (pronounced just 'node') is a Kronark Node (.knode) file
// format definition, expressed as a tree of construct.Construct values
// rather than hand-rolled bit shifting. It demonstrates the engine against
// a real bit-packed, variable-length binary format: nested PrefixedArrays,
// a Bitwise-packed position/size header, and an Enum over socket types.
package knode

import (
	"fmt"
	"io"

	"github.com/thacuber2a03/construct"
)

const (
	// MagicNumber is the fixed signature every .knode file starts with.
	MagicNumber = "kronarknode"
	// LatestVersion is the newest format version this package understands.
	LatestVersion = 1
)

// BuiltinNodeType is an alias for the higher values of the type index field
// in an Instance that denote the nodes whose prototype is pre-defined
// within the compiler.
type BuiltinNodeType byte

const (
	PortBuiltin BuiltinNodeType = 0xff - iota
	SettingsBuiltin
	PathBuiltin
	BytesBuiltin
	JoinBuiltin
	OptionBuiltin
	ConditionBuiltin
	FormatBuiltin
	TypeBuiltin
	ApplyBuiltin
	SizeBuiltin
	FileBuiltin
	ReverseBuiltin
	ValueBuiltin
	MathBuiltin
	RepeatBuiltin
	TimeBuiltin
	SplitBuiltin
	CollectBuiltin
)

// BuiltinNodeTypeNames holds the names of all the built-in node types,
// indexed by BuiltinNodeType.
var BuiltinNodeTypeNames = map[int64]string{
	int64(PortBuiltin):      "builtin:port",
	int64(SettingsBuiltin):  "builtin:settings",
	int64(PathBuiltin):      "builtin:path",
	int64(BytesBuiltin):     "builtin:bytes",
	int64(JoinBuiltin):      "builtin:join",
	int64(OptionBuiltin):    "builtin:option",
	int64(ConditionBuiltin): "builtin:condition",
	int64(FormatBuiltin):    "builtin:format",
	int64(TypeBuiltin):      "builtin:type",
	int64(ApplyBuiltin):     "builtin:apply",
	int64(SizeBuiltin):      "builtin:size",
	int64(FileBuiltin):      "builtin:file",
	int64(ReverseBuiltin):   "builtin:reverse",
	int64(ValueBuiltin):     "builtin:value",
	int64(MathBuiltin):      "builtin:math",
	int64(RepeatBuiltin):    "builtin:repeat",
	int64(TimeBuiltin):      "builtin:time",
	int64(SplitBuiltin):     "builtin:split",
	int64(CollectBuiltin):   "builtin:collect",
}

// SocketType denotes the type of a node socket.
type SocketType byte

const (
	OutgoingNamed SocketType = iota
	IncomingNamed
	IncomingNumber
	IncomingSelect
	IncomingSwitch
	IncomingText
)

var socketTypeNames = map[string]int64{
	"outgoing-named":  int64(OutgoingNamed),
	"incoming-named":  int64(IncomingNamed),
	"incoming-number": int64(IncomingNumber),
	"incoming-select": int64(IncomingSelect),
	"incoming-switch": int64(IncomingSwitch),
	"incoming-text":   int64(IncomingText),
}

// Position represents a node's position within a project or another node.
// Stored on the wire as two 10-bit fields biased by 500 (spec §4.6's
// Bitwise/BitsInteger), decoded here to ordinary signed coordinates.
type Position struct{ X, Y int64 }

// Socket represents a node's input/output socket.
type Socket struct {
	Type            string
	ValueType       byte
	PortSlot        byte
	Repetitive      bool
	Connected       bool
	ConnectedSocket byte
	ConnectedNode   byte
	Value           string
}

// Instance represents an instance of a node prototype inside or outside
// the project.
type Instance struct {
	Key      byte
	Type     byte
	Name     string
	Position Position
	Sockets  []Socket
}

// Node represents the structure of a node file.
type Node struct {
	Version           int64
	InputRootPosition Position
	OutputRootPosition Position
	OutputConnections [][2]byte
	Nodes             []string
	Types             []string
	Instances         []Instance
}

// biasedBits10 is a 10-bit unsigned bitfield biased by -500 on parse and
// +500 on build, matching the original format's "value - 500" unpacking.
func biasedBits10() construct.Construct {
	return construct.AdapterOf(
		construct.BitsInteger(10, false, false),
		func(v any, _ *construct.Context) (any, error) { return v.(int64) - 500, nil },
		func(v any, _ *construct.Context) (any, error) { return v.(int64) + 500, nil },
	)
}

func boolBit() construct.Construct {
	return construct.AdapterOf(
		construct.BitsInteger(1, false, false),
		func(v any, _ *construct.Context) (any, error) { return v.(int64) != 0, nil },
		func(v any, _ *construct.Context) (any, error) {
			if b, _ := v.(bool); b {
				return int64(1), nil
			}
			return int64(0), nil
		},
	)
}

// versionField validates the parsed byte against LatestVersion, the
// construct-native replacement for the original parser's manual check in
// parseHeader.
func versionField() construct.Construct {
	return construct.AdapterOf(construct.Byte, func(v any, _ *construct.Context) (any, error) {
		n := v.(int64)
		if n > LatestVersion {
			return nil, fmt.Errorf("invalid version number %d (higher than latest [%d])", n, LatestVersion)
		}
		return n, nil
	}, nil)
}

// headerConstruct is the "kronarknode" magic plus a validated version byte.
func headerConstruct() construct.Construct {
	return construct.StructOf(
		construct.NameField("magic", construct.ConstBytes([]byte(MagicNumber))),
		construct.NameField("version", versionField()),
	)
}

// rootsConstruct is the 40-bit (5-byte) Bitwise-packed root position
// quartet, followed by a count-prefixed array of [node, socket] byte pairs
// (spec §4.6 Bitwise + §4.6 PrefixedArray).
func rootsConstruct() construct.Construct {
	return construct.StructOf(
		construct.NameField("positions", construct.BitwiseOf(construct.StructOf(
			construct.NameField("inputX", biasedBits10()),
			construct.NameField("inputY", biasedBits10()),
			construct.NameField("outputX", biasedBits10()),
			construct.NameField("outputY", biasedBits10()),
		))),
		construct.NameField("connections", construct.PrefixedArrayOf(construct.Byte, construct.Bytes(2))),
	)
}

// nodesAndTypesConstruct is two count-prefixed arrays of byte-length
// prefixed ASCII strings (spec §4.4 PascalString, §4.6 PrefixedArray).
func nodesAndTypesConstruct() construct.Construct {
	return construct.StructOf(
		construct.NameField("nodes", construct.PrefixedArrayOf(construct.Byte, construct.PascalString(construct.Byte, construct.ASCII))),
		construct.NameField("types", construct.PrefixedArrayOf(construct.Byte, construct.PascalString(construct.Byte, construct.ASCII))),
	)
}

// socketFlagsConstruct packs type/repetitive/connected/switchValue into a
// single byte, read bit-by-bit (spec §4.6 Bitwise): 2 reserved bits, a
// 3-bit type, then three 1-bit flags, MSB first.
func socketFlagsConstruct() construct.Construct {
	return construct.BitwiseOf(construct.StructOf(
		construct.NameField("_reserved", construct.BitsInteger(2, false, false)),
		construct.NameField("type", construct.EnumOf(construct.BitsInteger(3, false, false), socketTypeNames)),
		construct.NameField("repetitive", boolBit()),
		construct.NameField("connected", boolBit()),
		construct.NameField("switchValue", boolBit()),
	))
}

// socketPayload is a hand-written Construct rather than a generic engine
// primitive: the original format's socket trailer branches on three
// already-parsed sibling fields (type, connected, switchValue) in a way
// that doesn't fit Select's trial-and-error semantics or Union's
// parse-every-alternative semantics, since only one branch is ever valid
// to attempt. It reads the already-parsed flags straight out of ctx.
type socketPayload struct{}

func (socketPayload) FixedSize() bool { return false }

func (socketPayload) SizeOf(ctx *construct.Context, path construct.Path) (int, error) {
	return 0, &construct.SizeUnknownError{}
}

func (socketPayload) Parse(s construct.Stream, ctx *construct.Context, path construct.Path) (any, error) {
	flags, _ := ctx.Get("flags")
	flagsObj := flags.(*construct.Object)
	typ, _ := flagsObj.Get("type")
	connected, _ := flagsObj.Get("connected")
	switchValue, _ := flagsObj.Get("switchValue")

	typeName := enumName(typ)
	if typeName == "outgoing-named" {
		return nil, nil
	}
	if connected.(bool) {
		node, err := s.Read(1)
		if err != nil {
			return nil, err
		}
		sock, err := s.Read(1)
		if err != nil {
			return nil, err
		}
		return []byte{node[0], sock[0]}, nil
	}
	if typeName != "incoming-switch" {
		v, err := construct.Int32ub.Parse(s, ctx, path)
		if err != nil {
			return nil, err
		}
		n := v.(int64)
		raw, err := s.Read(int(n))
		if err != nil {
			return nil, err
		}
		return string(raw), nil
	}
	return fmt.Sprintf("%v", switchValue.(bool)), nil
}

func (socketPayload) Build(val any, s construct.Stream, ctx *construct.Context, path construct.Path) (any, error) {
	flags, _ := ctx.Get("flags")
	flagsObj := flags.(*construct.Object)
	typ, _ := flagsObj.Get("type")
	connected, _ := flagsObj.Get("connected")

	typeName := enumName(typ)
	if typeName == "outgoing-named" {
		return nil, nil
	}
	if connected.(bool) {
		pair, _ := val.([]byte)
		if len(pair) != 2 {
			return nil, &construct.FormatError{}
		}
		if err := s.Write(pair); err != nil {
			return nil, err
		}
		return pair, nil
	}
	if typeName != "incoming-switch" {
		str, _ := val.(string)
		raw := []byte(str)
		if _, err := construct.Int32ub.Build(int64(len(raw)), s, ctx, path); err != nil {
			return nil, err
		}
		if err := s.Write(raw); err != nil {
			return nil, err
		}
		return str, nil
	}
	return val, nil
}

func enumName(v any) string {
	if ev, ok := v.(construct.EnumValue); ok {
		return ev.Name
	}
	return ""
}

// socketConstruct is one Socket entry: flags byte, value-type index, port
// slot, then the type-dependent trailer above.
func socketConstruct() construct.Construct {
	return construct.StructOf(
		construct.NameField("flags", socketFlagsConstruct()),
		construct.NameField("valueType", construct.Byte),
		construct.NameField("portSlot", construct.Byte),
		construct.NameField("payload", socketPayload{}),
	)
}

// instanceSizeConstruct is the 32-bit Bitwise-packed (x, y, nameLen,
// sockCount) quartet preceding each instance's name and socket list.
func instanceSizeConstruct() construct.Construct {
	return construct.BitwiseOf(construct.StructOf(
		construct.NameField("x", biasedBits10()),
		construct.NameField("y", biasedBits10()),
		construct.NameField("nameLen", construct.BitsInteger(6, false, false)),
		construct.NameField("sockCount", construct.BitsInteger(6, false, false)),
	))
}

// stringBytes reads/writes exactly n raw bytes (n an expression over
// context) and adapts them to/from a Go string.
func stringBytes(n construct.Expr) construct.Construct {
	return construct.AdapterOf(construct.BytesExprOf(n),
		func(v any, _ *construct.Context) (any, error) { return string(v.([]byte)), nil },
		func(v any, _ *construct.Context) (any, error) { return []byte(v.(string)), nil },
	)
}

// instanceConstruct is one node Instance: key, prototype-path index, a
// bit-packed size header, the name it names, and its socket list.
func instanceConstruct() construct.Construct {
	sizeInfo := construct.Field("sizeInfo")
	return construct.StructOf(
		construct.NameField("key", construct.Byte),
		construct.NameField("type", construct.Byte),
		construct.NameField("sizeInfo", instanceSizeConstruct()),
		construct.NameField("name", stringBytes(construct.Attr(sizeInfo, "nameLen"))),
		construct.NameField("sockets", construct.ArrayOf(construct.Attr(sizeInfo, "sockCount"), socketConstruct())),
	)
}

// instancesConstruct is the count-prefixed list of all instances.
func instancesConstruct() construct.Construct {
	return construct.PrefixedArrayOf(construct.Byte, instanceConstruct())
}

// Format returns the root construct.Construct describing a whole .knode
// file: header, roots, nodes/types tables, and instances, in that order —
// the same layout parser.parse walked field by field in the original.
func Format() construct.Construct {
	return construct.StructOf(
		construct.NameField("header", headerConstruct()),
		construct.NameField("roots", rootsConstruct()),
		construct.NameField("tables", nodesAndTypesConstruct()),
		construct.NameField("instances", instancesConstruct()),
	)
}

// ParseFromSlice decodes a Node from buf.
func ParseFromSlice(buf []byte) (*Node, error) {
	v, err := construct.ParseBytes(Format(), buf)
	if err != nil {
		return nil, err
	}
	return objectToNode(v.(*construct.Object))
}

// ParseFromReader decodes a Node from r. Mirrors the original package's
// ParseFromReader: the error is not guaranteed to be a construct error
// type, since io.ReadAll can fail first.
func ParseFromReader(r io.Reader) (*Node, error) {
	buf, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	return ParseFromSlice(buf)
}

func objectToNode(obj *construct.Object) (*Node, error) {
	n := &Node{}

	header, _ := obj.Get("header")
	headerObj := header.(*construct.Object)
	version, _ := headerObj.Get("version")
	n.Version = version.(int64)

	roots, _ := obj.Get("roots")
	rootsObj := roots.(*construct.Object)
	positions, _ := rootsObj.Get("positions")
	posObj := positions.(*construct.Object)
	ix, _ := posObj.Get("inputX")
	iy, _ := posObj.Get("inputY")
	ox, _ := posObj.Get("outputX")
	oy, _ := posObj.Get("outputY")
	n.InputRootPosition = Position{X: ix.(int64), Y: iy.(int64)}
	n.OutputRootPosition = Position{X: ox.(int64), Y: oy.(int64)}

	conns, _ := rootsObj.Get("connections")
	for _, c := range conns.(*construct.ListObject).Items() {
		pair := c.([]byte)
		n.OutputConnections = append(n.OutputConnections, [2]byte{pair[0], pair[1]})
	}

	tables, _ := obj.Get("tables")
	tablesObj := tables.(*construct.Object)
	nodes, _ := tablesObj.Get("nodes")
	for _, v := range nodes.(*construct.ListObject).Items() {
		n.Nodes = append(n.Nodes, v.(string))
	}
	types, _ := tablesObj.Get("types")
	for _, v := range types.(*construct.ListObject).Items() {
		n.Types = append(n.Types, v.(string))
	}

	instances, _ := obj.Get("instances")
	for _, iv := range instances.(*construct.ListObject).Items() {
		instObj := iv.(*construct.Object)
		inst, err := objectToInstance(instObj)
		if err != nil {
			return nil, err
		}
		n.Instances = append(n.Instances, *inst)
	}

	return n, nil
}

func objectToInstance(obj *construct.Object) (*Instance, error) {
	inst := &Instance{}
	key, _ := obj.Get("key")
	inst.Key = byte(key.(int64))
	typ, _ := obj.Get("type")
	inst.Type = byte(typ.(int64))
	name, _ := obj.Get("name")
	inst.Name = name.(string)

	sizeInfo, _ := obj.Get("sizeInfo")
	sizeObj := sizeInfo.(*construct.Object)
	x, _ := sizeObj.Get("x")
	y, _ := sizeObj.Get("y")
	inst.Position = Position{X: x.(int64), Y: y.(int64)}

	sockets, _ := obj.Get("sockets")
	for _, sv := range sockets.(*construct.ListObject).Items() {
		sockObj := sv.(*construct.Object)
		sock, err := objectToSocket(sockObj)
		if err != nil {
			return nil, err
		}
		inst.Sockets = append(inst.Sockets, *sock)
	}
	return inst, nil
}

func objectToSocket(obj *construct.Object) (*Socket, error) {
	sock := &Socket{}
	flags, _ := obj.Get("flags")
	flagsObj := flags.(*construct.Object)
	typ, _ := flagsObj.Get("type")
	sock.Type = enumName(typ)
	repetitive, _ := flagsObj.Get("repetitive")
	sock.Repetitive = repetitive.(bool)
	connected, _ := flagsObj.Get("connected")
	sock.Connected = connected.(bool)

	valueType, _ := obj.Get("valueType")
	sock.ValueType = byte(valueType.(int64))
	portSlot, _ := obj.Get("portSlot")
	sock.PortSlot = byte(portSlot.(int64))

	payload, _ := obj.Get("payload")
	switch p := payload.(type) {
	case []byte:
		if len(p) == 2 {
			sock.ConnectedNode = p[0]
			sock.ConnectedSocket = p[1]
		}
	case string:
		sock.Value = p
	}
	return sock, nil
}

// Build encodes a Node back into .knode bytes.
func Build(n *Node) ([]byte, error) {
	obj, err := nodeToObject(n)
	if err != nil {
		return nil, err
	}
	return construct.Build(Format(), obj)
}

func nodeToObject(n *Node) (*construct.Object, error) {
	root := construct.NewObject()

	header := construct.NewObject()
	header.Set("magic", []byte(MagicNumber))
	header.Set("version", n.Version)
	root.Set("header", header)

	roots := construct.NewObject()
	positions := construct.NewObject()
	positions.Set("inputX", n.InputRootPosition.X)
	positions.Set("inputY", n.InputRootPosition.Y)
	positions.Set("outputX", n.OutputRootPosition.X)
	positions.Set("outputY", n.OutputRootPosition.Y)
	roots.Set("positions", positions)
	conns := construct.NewListObject(nil)
	for _, c := range n.OutputConnections {
		conns.Append([]byte{c[0], c[1]})
	}
	roots.Set("connections", conns)
	root.Set("roots", roots)

	tables := construct.NewObject()
	nodes := construct.NewListObject(nil)
	for _, p := range n.Nodes {
		nodes.Append(p)
	}
	tables.Set("nodes", nodes)
	types := construct.NewListObject(nil)
	for _, t := range n.Types {
		types.Append(t)
	}
	tables.Set("types", types)
	root.Set("tables", tables)

	instances := construct.NewListObject(nil)
	for _, inst := range n.Instances {
		instObj := construct.NewObject()
		instObj.Set("key", int64(inst.Key))
		instObj.Set("type", int64(inst.Type))
		sizeObj := construct.NewObject()
		sizeObj.Set("x", inst.Position.X)
		sizeObj.Set("y", inst.Position.Y)
		sizeObj.Set("nameLen", int64(len(inst.Name)))
		sizeObj.Set("sockCount", int64(len(inst.Sockets)))
		instObj.Set("sizeInfo", sizeObj)
		instObj.Set("name", inst.Name)

		sockets := construct.NewListObject(nil)
		for _, sock := range inst.Sockets {
			sockObj := construct.NewObject()
			flagsObj := construct.NewObject()
			flagsObj.Set("_reserved", int64(0))
			flagsObj.Set("type", construct.EnumValue{Name: sock.Type, Value: socketTypeNames[sock.Type], Known: true})
			flagsObj.Set("repetitive", sock.Repetitive)
			flagsObj.Set("connected", sock.Connected)
			flagsObj.Set("switchValue", sock.Value == "true")
			sockObj.Set("flags", flagsObj)
			sockObj.Set("valueType", int64(sock.ValueType))
			sockObj.Set("portSlot", int64(sock.PortSlot))
			if sock.Connected {
				sockObj.Set("payload", []byte{sock.ConnectedNode, sock.ConnectedSocket})
			} else {
				sockObj.Set("payload", sock.Value)
			}
			sockets.Append(sockObj)
		}
		instObj.Set("sockets", sockets)
		instances.Append(instObj)
	}
	root.Set("instances", instances)

	return root, nil
}
