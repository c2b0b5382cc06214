package extractor

import (
	"fmt"
	"io"
	"sort"

	"github.com/tcmartin/nodeharvest/pkg/nodes"
)

// PrintSummary writes the operator-facing summary of a single-package run.
func PrintSummary(w io.Writer, res *Result) {
	fmt.Fprintf(w, "Extracted %d nodes from %s@%s\n", res.TotalNodes, res.Package, res.Version)
	for _, d := range res.Nodes {
		printNode(w, d)
	}
}

// PrintMultiSummary writes the operator-facing summary of a
// multi-package run, with packages in name order.
func PrintMultiSummary(w io.Writer, res *MultiResult) {
	fmt.Fprintf(w, "Extracted %d nodes from %d packages\n", res.TotalNodes, res.TotalPackages)

	names := make([]string, 0, len(res.Packages))
	for name := range res.Packages {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		list := res.Packages[name]
		fmt.Fprintf(w, "\n%s (%d nodes)\n", name, len(list))
		for _, d := range list {
			printNode(w, d)
		}
	}
}

func printNode(w io.Writer, d *nodes.Description) {
	fmt.Fprintf(w, "  - %s: %s\n", d.Name, d.DisplayName)
	if d.Description != "" {
		fmt.Fprintf(w, "      %s\n", d.Description)
	}
	fmt.Fprintf(w, "      groups: %v, version: %v, properties: %d, credentials: %d, webhooks: %s, load options: %d\n",
		d.Group, d.Version, len(d.Properties), len(d.Credentials), yesNo(len(d.Webhooks) > 0), len(d.LoadOptionsMethods))
	switch {
	case d.IconURL != "":
		fmt.Fprintf(w, "      iconUrl: %s\n", d.IconURL)
	case d.Icon != "":
		fmt.Fprintf(w, "      icon: %s\n", d.Icon)
	}
}

func yesNo(v bool) string {
	if v {
		return "yes"
	}
	return "no"
}
