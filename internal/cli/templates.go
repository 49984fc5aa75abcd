package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/valter-silva-au/settlement/pkg/models"
)

var templateCmd = &cobra.Command{
	Use:     "template",
	Aliases: []string{"templates"},
	Short:   "List and inspect task templates",
	Long: `Task templates are reusable task definitions. The built-in templates are
always available; additional templates are read from templates.yaml in the
settlement directory at startup.`,
}

var templateListCmd = &cobra.Command{
	Use:   "list",
	Short: "List task templates",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if TmplMgr == nil {
			return errNotInitialized
		}
		templates := TmplMgr.ListTemplates()
		if len(templates) == 0 {
			fmt.Println("No templates.")
			return nil
		}
		fmt.Printf("  %-20s %-11s %-3s %-6s %s\n", "ID", "TYPE", "PRI", "HOURS", "NAME")
		for _, tmpl := range templates {
			fmt.Printf("  %-20s %-11s %-3d %-6.1f %s\n",
				tmpl.ID, tmpl.Type, tmpl.DefaultPriority, tmpl.Estimate.BaseHours, tmpl.Name)
		}
		return nil
	},
}

var templateShowCmd = &cobra.Command{
	Use:               "show <template-id>",
	Short:             "Show a template's requirements and outputs",
	Args:              cobra.ExactArgs(1),
	ValidArgsFunction: completeTemplateIDs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if TmplMgr == nil {
			return errNotInitialized
		}
		tmpl, err := TmplMgr.GetTemplate(args[0])
		if err != nil {
			return err
		}
		printTemplate(tmpl)
		return nil
	},
}

func printTemplate(tmpl models.TaskTemplate) {
	fmt.Printf("%s  %s\n", tmpl.ID, tmpl.Name)
	if tmpl.Description != "" {
		fmt.Printf("  %s\n", tmpl.Description)
	}
	fmt.Printf("  Type:      %s\n", tmpl.Type)
	fmt.Printf("  Priority:  %d\n", tmpl.DefaultPriority)
	fmt.Printf("  Estimate:  %.1fh base, %.1fh min, skill factor %.2f\n",
		tmpl.Estimate.BaseHours, tmpl.Estimate.MinHours, tmpl.Estimate.SkillFactor)
	for _, s := range tmpl.RequiredSkills {
		fmt.Printf("  Skill:     %s >= %d\n", s.SkillID, s.RequiredLevel)
	}
	for _, item := range tmpl.RequiredItems {
		fmt.Printf("  Requires:  %s x%d\n", item.ItemID, item.Quantity)
	}
	for _, out := range tmpl.OutputItems {
		fmt.Printf("  Produces:  %s x%d\n", out.ItemID, out.Quantity)
	}
}

func init() {
	templateCmd.RunE = templateListCmd.RunE
	templateCmd.AddCommand(templateListCmd)
	templateCmd.AddCommand(templateShowCmd)
	rootCmd.AddCommand(templateCmd)
}
