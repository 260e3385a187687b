package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"redline/internal/cart"
	"redline/internal/config"
)

// loadCart builds a cart from "N=overlay.png" specs. Later specs for the same
// page replace earlier ones.
func loadCart(fileID string, specs []string) (*cart.Cart, error) {
	c := cart.NewForFile(strings.TrimSpace(fileID))
	for _, spec := range specs {
		page, path, err := parsePageSpec(spec)
		if err != nil {
			return nil, err
		}
		raster, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read overlay for page %d: %w", page, err)
		}
		if _, err := c.Save(page, raster); err != nil {
			return nil, err
		}
	}
	return c, nil
}

func parsePageSpec(spec string) (int, string, error) {
	number, path, ok := strings.Cut(strings.TrimSpace(spec), "=")
	if !ok || strings.TrimSpace(path) == "" {
		return 0, "", fmt.Errorf("invalid page %q (expected N=overlay.png)", spec)
	}
	page, err := strconv.Atoi(strings.TrimSpace(number))
	if err != nil || page <= 0 {
		return 0, "", fmt.Errorf("invalid page number in %q", spec)
	}
	expanded, err := config.ExpandPath(strings.TrimSpace(path))
	if err != nil {
		return 0, "", err
	}
	return page, expanded, nil
}
