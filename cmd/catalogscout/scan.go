package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/IshaanNene/catalogscout/internal/catalog"
	"github.com/IshaanNene/catalogscout/internal/config"
	"github.com/IshaanNene/catalogscout/internal/engine"
)

var catalogPath string

// scanCmd creates the "scan" subcommand.
func scanCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scan <url>",
		Short: "Locate catalog products on a site page",
		Long: `Fetch one page of the target site, locate every product of the catalog
on it by fuzzy text matching, and download the images found near each match.`,
		Args: cobra.ExactArgs(1),
		RunE: runScan,
	}

	cmd.Flags().StringVarP(&catalogPath, "catalog", "p", "products.csv", "delimited product listing")
	addOutputFlags(cmd)
	return cmd
}

func runScan(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := setupLogger(cfg.Logging)

	siteURL := args[0]
	if err := config.ValidateURL(siteURL); err != nil {
		return fmt.Errorf("invalid URL %q: %w", siteURL, err)
	}

	entries, err := catalog.LoadFile(catalogPath, catalog.OptionsFromConfig(cfg.Catalog))
	if err != nil {
		return err
	}

	logger.Info("starting scan",
		"url", siteURL,
		"catalog", catalogPath,
		"entries", len(entries),
		"output", cfg.Storage.OutputPath,
	)

	return runSources(cfg, logger, []engine.Source{engine.ScanPage(siteURL, entries)})
}

// urlsCmd creates the "urls" subcommand.
func urlsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "urls <sources.json>",
		Short: "Scrape product and search pages listed in a sources file",
		Long: `Scrape the pages listed in a JSON (or JSON5) sources file:

  [
    {"name": "NAIPES", "url": "https://shop.example.com/productos/naipes/", "type": "product"},
    {"name": "LIBRETAS", "url": "https://shop.example.com/search/?q=libreta", "type": "search"}
  ]

Search pages are expanded into their first product links.`,
		Args: cobra.ExactArgs(1),
		RunE: runURLs,
	}

	addOutputFlags(cmd)
	return cmd
}

func runURLs(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := setupLogger(cfg.Logging)

	specs, err := catalog.LoadSources(args[0])
	if err != nil {
		return err
	}
	for _, s := range specs {
		if err := config.ValidateURL(s.URL); err != nil {
			return fmt.Errorf("source %q: %w", s.Name, err)
		}
	}

	logger.Info("starting url scrape",
		"sources", len(specs),
		"output", cfg.Storage.OutputPath,
	)

	return runSources(cfg, logger, engine.FromSpecs(specs))
}
