// Command trustnode-admin is the operator CLI for a villages trust
// registry node: feed manifest inspection and audit log export, both
// optionally signed with the node's flat Ed25519 signing seed.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	"xdao.co/villages/audit"
	"xdao.co/villages/policyfeed"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, out, errOut io.Writer) int {
	if len(args) == 0 {
		printUsage(errOut)
		return 2
	}

	switch args[0] {
	case "manifest":
		return cmdManifest(args[1:], out, errOut)
	case "audit":
		return cmdAudit(args[1:], out, errOut)
	case "help", "-h", "--help":
		printUsage(out)
		return 0
	default:
		fmt.Fprintf(errOut, "unknown command: %s\n\n", args[0])
		printUsage(errOut)
		return 2
	}
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, "trustnode-admin: villages trust-registry node operator CLI")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  trustnode-admin manifest show --store <dir> --village <id> [--seed-hex <64hex>]")
	fmt.Fprintln(w, "  trustnode-admin audit export --store <dir> --village <id> [--fmt json|csv] [--sign] [--seed-hex <64hex>]")
}

func cmdManifest(args []string, out, errOut io.Writer) int {
	if len(args) == 0 || args[0] != "show" {
		fmt.Fprintln(errOut, "usage: trustnode-admin manifest show --store <dir> --village <id> [--seed-hex <64hex>]")
		return 2
	}
	fs := flag.NewFlagSet("manifest show", flag.ContinueOnError)
	fs.SetOutput(errOut)
	var store, villageID, seedHex string
	fs.StringVar(&store, "store", "", "Store root directory")
	fs.StringVar(&villageID, "village", "", "Village ID")
	fs.StringVar(&seedHex, "seed-hex", "", "Optional node signing seed (64 hex chars) to sign the manifest")
	if err := fs.Parse(args[1:]); err != nil {
		return 2
	}
	if store == "" || villageID == "" {
		fmt.Fprintln(errOut, "missing --store or --village")
		return 2
	}

	feed := policyfeed.New(store)
	m, err := feed.BuildManifest(villageID)
	if err != nil {
		fmt.Fprintf(errOut, "build manifest: %v\n", err)
		return 1
	}
	if seedHex != "" {
		seed, err := parseSeedHex(seedHex)
		if err != nil {
			fmt.Fprintf(errOut, "invalid --seed-hex: %v\n", err)
			return 2
		}
		m, err = policyfeed.SignManifest(m, seed)
		if err != nil {
			fmt.Fprintf(errOut, "sign manifest: %v\n", err)
			return 1
		}
	}
	data, err := canonMarshalIndent(m)
	if err != nil {
		fmt.Fprintf(errOut, "render manifest: %v\n", err)
		return 1
	}
	fmt.Fprintln(out, string(data))
	return 0
}

func cmdAudit(args []string, out, errOut io.Writer) int {
	if len(args) == 0 || args[0] != "export" {
		fmt.Fprintln(errOut, "usage: trustnode-admin audit export --store <dir> --village <id> [--fmt json|csv] [--sign] [--seed-hex <64hex>]")
		return 2
	}
	fs := flag.NewFlagSet("audit export", flag.ContinueOnError)
	fs.SetOutput(errOut)
	var store, villageID, format, seedHex string
	var sign bool
	fs.StringVar(&store, "store", "", "Store root directory")
	fs.StringVar(&villageID, "village", "", "Village ID to filter on")
	fs.StringVar(&format, "fmt", "json", "Export format: json or csv")
	fs.BoolVar(&sign, "sign", false, "Sign the export digest")
	fs.StringVar(&seedHex, "seed-hex", "", "Node signing seed (64 hex chars); required with --sign")
	if err := fs.Parse(args[1:]); err != nil {
		return 2
	}
	if store == "" {
		fmt.Fprintln(errOut, "missing --store")
		return 2
	}

	log := audit.New(store)
	events, err := log.Iter()
	if err != nil {
		fmt.Fprintf(errOut, "read audit log: %v\n", err)
		return 1
	}

	var seed []byte
	if sign {
		if seedHex == "" {
			fmt.Fprintln(errOut, "--sign requires --seed-hex")
			return 2
		}
		seed, err = parseSeedHex(seedHex)
		if err != nil {
			fmt.Fprintf(errOut, "invalid --seed-hex: %v\n", err)
			return 2
		}
	}

	var exportFormat audit.ExportFormat
	switch format {
	case "csv":
		exportFormat = audit.FormatCSV
	default:
		exportFormat = audit.FormatJSON
	}

	var filter func(audit.Event) bool
	if villageID != "" {
		filter = func(e audit.Event) bool { return e.VillageID == villageID }
	}

	result, err := audit.Export(events, exportFormat, filter, seed)
	if err != nil {
		fmt.Fprintf(errOut, "export: %v\n", err)
		return 1
	}
	if _, err := out.Write(result.Data); err != nil {
		fmt.Fprintf(errOut, "write export: %v\n", err)
		return 1
	}
	fmt.Fprintf(errOut, "digest: %s\n", result.DigestHex)
	if result.Signature != "" {
		fmt.Fprintf(errOut, "signature: %s\n", result.Signature)
	}
	return 0
}

