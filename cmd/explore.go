package cmd

import (
	"fmt"
	"log"

	"github.com/polarisnav/polaris/internal/catalog"
	"github.com/polarisnav/polaris/internal/logger"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	promptBack = "back"
	promptExit = "exit"
)

var exploreCmd = &cobra.Command{
	Use:   "explore",
	Short: "Browse the role catalog and its overlaps interactively",
	Run: func(_ *cobra.Command, _ []string) {
		explore()
	},
}

func init() {
	rootCmd.AddCommand(exploreCmd)
}

func explore() {
	logger, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	config, err := getConfig()
	if err != nil {
		log.Fatalf("getting a config: %s", err)
	}

	cat := loadCatalog(config.Catalog.File, logger)
	if cat.Len() == 0 {
		fmt.Println("the role catalog is empty, nothing to explore")
		return
	}
	index := catalog.BuildIndex(cat)

	for {
		names := make([]string, 0, cat.Len())
		for _, role := range cat.Roles() {
			names = append(names, role.Name)
		}

		rolePrompt := promptui.Select{
			Label: "Choose a role and press ENTER",
			Items: append(names, promptExit),
			Size:  15,
		}

		_, selected, err := rolePrompt.Run()
		if err != nil {
			return
		}
		if selected == promptExit {
			return
		}

		if err := exploreRole(cat, index, selected); err != nil {
			fmt.Println(err)
			return
		}
	}
}

func exploreRole(cat *catalog.Catalog, index *catalog.Index, name string) error {
	for {
		role, ok := cat.Get(name)
		if !ok {
			return fmt.Errorf("role %q is not in the catalog", name)
		}

		entry, ok := index.Entry(name)
		if !ok {
			return fmt.Errorf("role %q has no overlap entry", name)
		}

		fmt.Printf("\n%s  (technical=%d creative=%d business=%d customer=%d)\n\n",
			role.Name, role.Technical, role.Creative, role.Business, role.Customer)

		items := make([]string, 0, len(entry.Close)+len(entry.Oddball)+1)
		for _, neighbor := range entry.Close {
			items = append(items, fmt.Sprintf("%s (distance %.2f)", neighbor.Name, neighbor.Distance))
		}
		for _, neighbor := range entry.Oddball {
			items = append(items, fmt.Sprintf("%s (distance %.2f, oddball)", neighbor.Name, neighbor.Distance))
		}

		neighborPrompt := promptui.Select{
			Label: "Neighboring roles",
			Items: append(items, promptBack),
			Size:  15,
		}

		idx, selected, err := neighborPrompt.Run()
		if err != nil {
			return err
		}
		if selected == promptBack {
			return nil
		}

		if idx < len(entry.Close) {
			name = entry.Close[idx].Name
		} else {
			name = entry.Oddball[idx-len(entry.Close)].Name
		}
	}
}
