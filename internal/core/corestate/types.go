package corestate

// CoreState is the basic meta-information vital to the node.
type CoreState struct {
	NodeUUID        string
	NodeUUIDDirName string

	StartTimestampUnix int64

	NodeBinName string
	NodeVersion string

	Stage Stage

	NodePath string
	MetaDir  string
	RunDir   string
}
