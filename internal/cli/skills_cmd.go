package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/soyeahso/collig/internal/skill"
	"github.com/spf13/cobra"
)

func newSkillsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "skills",
		Short: "List registered skills",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.Close()
			printSkills(cmd.OutOrStdout(), a.Skills)
			return nil
		},
	}
}

func printSkills(out io.Writer, reg *skill.Registry) {
	for _, s := range reg.Skills() {
		mode := "tools"
		if _, ok := s.(skill.Executor); ok {
			mode = "executor"
		}
		fmt.Fprintf(out, "%s [%s]\n", s.Name(), mode)
		fmt.Fprintf(out, "  %s\n", s.Description())
		if t := s.Triggers(); len(t) > 0 {
			fmt.Fprintf(out, "  triggers: %s\n", strings.Join(t, ", "))
		}
		if req := s.RequiredConfig(); len(req) > 0 {
			fmt.Fprintf(out, "  requires: %s\n", strings.Join(req, ", "))
		}
		if tp, ok := s.(skill.ToolProvider); ok {
			var names []string
			for _, t := range tp.Tools() {
				names = append(names, t.Name)
			}
			if len(names) > 0 {
				fmt.Fprintf(out, "  tools: %s\n", strings.Join(names, ", "))
			}
		}
	}
}
