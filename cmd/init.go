package cmd

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/conneroisu/shtml/internal/scaffolding"
)

var initCmd = &cobra.Command{
	Use:     "init [name]",
	Aliases: []string{"i", "new"},
	Short:   "Create a new SHTML project",
	Long: `Create a new SHTML project with a package manifest, a starter page, an
assets directory and a .shtml.yml configuration. Pass "." to initialize the
current directory. Without a name you are prompted for one.

Examples:
  shtml init MySite     # Create ./MySite
  shtml init .          # Initialize the current directory`,
	Args: cobra.MaximumNArgs(1),
	RunE: runInit,
}

func init() {
	rootCmd.AddCommand(initCmd)
}

func runInit(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()

	var name string
	if len(args) > 0 {
		name = args[0]
	} else {
		var err error
		name, err = promptName(cmd.InOrStdin(), out)
		if err != nil {
			return err
		}
	}

	wd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("get working directory: %w", err)
	}

	res, err := scaffolding.Generate(wd, name)
	if err != nil {
		return err
	}

	if res.InPlace {
		fmt.Fprintf(out, "Initialized %s in the current directory\n", res.Target)
	} else {
		fmt.Fprintf(out, "Created %s\n", res.Target)
	}
	for _, f := range res.Files {
		fmt.Fprintf(out, "  %s\n", f)
	}

	fmt.Fprintln(out, "\nNext steps:")
	if !res.InPlace {
		fmt.Fprintf(out, "  cd %s\n", res.Target)
	}
	fmt.Fprintln(out, "  shtml dev")
	return nil
}

func promptName(in io.Reader, out io.Writer) (string, error) {
	fmt.Fprint(out, "Project name: ")
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && err != io.EOF {
		return "", fmt.Errorf("read project name: %w", err)
	}
	return strings.TrimSpace(line), nil
}
