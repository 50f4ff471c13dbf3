// Command go-appattest inspects device-attestation artifacts: it decodes
// DER, CBOR, certificates, CMS SignedData and full App Attest objects
// into indented JSON or diagnostic notation. It never verifies anything.
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/alecthomas/kong"

	"github.com/openattest/go-appattest/cbor"
	"github.com/openattest/go-appattest/cose"
	"github.com/openattest/go-appattest/inspect"
)

// CLI defines the command-line interface. Every subcommand takes one
// input file; "-" reads from stdin.
type CLI struct {
	Attestation attestationCmd `cmd:"" help:"Decode an App Attest attestation object into a report."`
	Assertion   assertionCmd   `cmd:"" help:"Decode an App Attest assertion object."`
	Cert        certCmd        `cmd:"" help:"Decode a DER certificate."`
	CMS         cmsCmd         `cmd:"" name:"cms" help:"Decode a CMS SignedData blob."`
	Sign1       sign1Cmd       `cmd:"" help:"Decode a COSE_Sign1 message."`
	DER         derCmd         `cmd:"" name:"der" help:"Dump a DER blob as a TLV tree."`
	CBOR        cborCmd        `cmd:"" name:"cbor" help:"Dump a CBOR item in diagnostic notation."`
}

type attestationCmd struct {
	Path string `arg:"" help:"Attestation object file, or - for stdin."`
}

type assertionCmd struct {
	Path string `arg:"" help:"Assertion object file, or - for stdin."`
}

type certCmd struct {
	Path string `arg:"" help:"DER certificate file, or - for stdin."`
}

type cmsCmd struct {
	Path string `arg:"" help:"CMS SignedData file, or - for stdin."`
}

type sign1Cmd struct {
	Path string `arg:"" help:"COSE_Sign1 file, or - for stdin."`
}

type derCmd struct {
	Path string `arg:"" help:"DER file, or - for stdin."`
}

type cborCmd struct {
	Path string `arg:"" help:"CBOR file, or - for stdin."`
}

func main() {
	var cli CLI
	ctx := kong.Parse(&cli,
		kong.Name("go-appattest"),
		kong.Description("Structural decoder for device-attestation artifacts. Decodes, never verifies."),
	)
	ctx.FatalIfErrorf(ctx.Run())
}

func readInput(path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(os.Stdin)
	}
	return os.ReadFile(path)
}

func printJSON(v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}

func (c *attestationCmd) Run() error {
	b, err := readInput(c.Path)
	if err != nil {
		return err
	}
	report, err := inspect.New().Attestation(b)
	if err != nil {
		return err
	}
	return printJSON(report)
}

func (c *assertionCmd) Run() error {
	b, err := readInput(c.Path)
	if err != nil {
		return err
	}
	report, err := inspect.New().Assertion(b)
	if err != nil {
		return err
	}
	return printJSON(report)
}

func (c *certCmd) Run() error {
	b, err := readInput(c.Path)
	if err != nil {
		return err
	}
	summary, err := inspect.New().Certificate(b)
	if err != nil {
		return err
	}
	return printJSON(summary)
}

func (c *cmsCmd) Run() error {
	b, err := readInput(c.Path)
	if err != nil {
		return err
	}
	sd, err := inspect.New().SignedData(b)
	if err != nil {
		return err
	}
	return printJSON(sd)
}

func (c *sign1Cmd) Run() error {
	b, err := readInput(c.Path)
	if err != nil {
		return err
	}
	s, err := cose.DecodeSign1(b)
	if err != nil {
		return err
	}
	return printJSON(s)
}

func (c *derCmd) Run() error {
	b, err := readInput(c.Path)
	if err != nil {
		return err
	}
	tree, err := inspect.New().DERTree(b)
	if err != nil {
		return err
	}
	return printJSON(tree)
}

func (c *cborCmd) Run() error {
	b, err := readInput(c.Path)
	if err != nil {
		return err
	}
	v, err := cbor.Decode(b)
	if err != nil {
		return err
	}
	fmt.Println(cbor.Diagnostic(v))
	return nil
}
