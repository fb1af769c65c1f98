package diag

import (
	"fmt"
)

type Code uint16

const (
	UnknownCode Code = 0

	// directive syntax
	SynInfo               Code = 2000
	SynMalformedDirective Code = 2001
	SynDuplicateDirective Code = 2002

	// configuration
	CfgInfo               Code = 3000
	CfgAlreadySet         Code = 3001
	CfgInvalidParameter   Code = 3002
	CfgUnknownOption      Code = 3003
	CfgConflictingOptions Code = 3004
	CfgNotAFunction       Code = 3005

	// input/output
	IOInfo          Code = 4000
	IOLoadFileError Code = 4001
	IOParseError    Code = 4002
	IOWriteError    Code = 4003

	// generation
	GenInfo            Code = 5000
	GenMissingBuildTag Code = 5001
	GenNoBody          Code = 5002
	GenEmitFailed      Code = 5003
)

var codeDescription = map[Code]string{
	UnknownCode: "Unknown error",

	SynInfo:               "Directive syntax information",
	SynMalformedDirective: "Malformed funlog directive",
	SynDuplicateDirective: "Duplicate funlog directive",

	CfgInfo:               "Configuration information",
	CfgAlreadySet:         "Option already set",
	CfgInvalidParameter:   "Unknown parameter name",
	CfgUnknownOption:      "Unknown configuration option",
	CfgConflictingOptions: "Conflicting options",
	CfgNotAFunction:       "Directive is not attached to a function",

	IOInfo:          "I/O information",
	IOLoadFileError: "Failed to load file",
	IOParseError:    "Go syntax error",
	IOWriteError:    "Failed to write generated file",

	GenInfo:            "Generation information",
	GenMissingBuildTag: "Source file is not excluded by the generation tag",
	GenNoBody:          "Function has no body",
	GenEmitFailed:      "Code emission failed",
}

// ID returns the stable short identifier of the code, e.g. CFG3004.
func (c Code) ID() string {
	switch ic := int(c); {
	case ic >= 2000 && ic < 3000:
		return fmt.Sprintf("SYN%04d", ic)
	case ic >= 3000 && ic < 4000:
		return fmt.Sprintf("CFG%04d", ic)
	case ic >= 4000 && ic < 5000:
		return fmt.Sprintf("IO%04d", ic)
	case ic >= 5000 && ic < 6000:
		return fmt.Sprintf("GEN%04d", ic)
	}
	return "E0000"
}

func (c Code) Title() string {
	desc, ok := codeDescription[c]
	if !ok {
		return codeDescription[UnknownCode]
	}
	return desc
}

func (c Code) String() string {
	return fmt.Sprintf("[%s]: %s", c.ID(), c.Title())
}
