// Package config provides configuration types, defaults, and persistence for easel.
package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/yaml.v3"
)

// SaveGenerationDefaults updates the generation section in the config file.
// This preserves comments and formatting in other sections by using yaml.Node.
func SaveGenerationDefaults(configPath string, gen GenerationConfig) error {
	// Read existing file content
	data, err := os.ReadFile(configPath)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("reading config: %w", err)
	}

	// Parse into yaml.Node to preserve comments
	var doc yaml.Node
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return fmt.Errorf("parsing config: %w", err)
		}
	}

	// Build the new generation node
	genNode := buildGenerationNode(gen)

	// Update or create the generation section
	if doc.Kind == 0 {
		// Empty or new file - create document structure
		doc = yaml.Node{
			Kind: yaml.DocumentNode,
			Content: []*yaml.Node{
				{
					Kind: yaml.MappingNode,
					Content: []*yaml.Node{
						{Kind: yaml.ScalarNode, Value: "generation"},
						genNode,
					},
				},
			},
		}
	} else if doc.Kind == yaml.DocumentNode && len(doc.Content) > 0 {
		root := doc.Content[0]
		if root.Kind == yaml.MappingNode {
			// Find and replace generation key, or append it
			found := false
			for i := 0; i < len(root.Content)-1; i += 2 {
				if root.Content[i].Value == "generation" {
					root.Content[i+1] = genNode
					found = true
					break
				}
			}
			if !found {
				root.Content = append(root.Content,
					&yaml.Node{Kind: yaml.ScalarNode, Value: "generation"},
					genNode,
				)
			}
		}
	}

	// Marshal back to YAML
	var buf bytes.Buffer
	encoder := yaml.NewEncoder(&buf)
	encoder.SetIndent(2)
	if err := encoder.Encode(&doc); err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	_ = encoder.Close()

	// Write atomically (write to temp, then rename)
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	temp, err := os.CreateTemp(dir, ".easel.yaml.tmp.*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tempPath := temp.Name()

	if _, err := temp.Write(buf.Bytes()); err != nil {
		_ = temp.Close()
		_ = os.Remove(tempPath)
		return fmt.Errorf("writing temp file: %w", err)
	}
	if err := temp.Close(); err != nil {
		_ = os.Remove(tempPath)
		return fmt.Errorf("closing temp file: %w", err)
	}

	if err := os.Rename(tempPath, configPath); err != nil {
		_ = os.Remove(tempPath)
		return fmt.Errorf("renaming temp file: %w", err)
	}

	return nil
}

// buildGenerationNode creates a yaml.Node representing the generation section.
func buildGenerationNode(gen GenerationConfig) *yaml.Node {
	node := &yaml.Node{
		Kind:    yaml.MappingNode,
		Content: make([]*yaml.Node, 0),
	}

	addScalar := func(key, value, tag string) {
		node.Content = append(node.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Value: key},
			&yaml.Node{Kind: yaml.ScalarNode, Value: value, Tag: tag},
		)
	}

	if gen.Model != "" {
		addScalar("model", gen.Model, "")
	}
	addScalar("width", strconv.Itoa(gen.Width), "!!int")
	addScalar("height", strconv.Itoa(gen.Height), "!!int")
	addScalar("batch_size", strconv.Itoa(gen.BatchSize), "!!int")
	addScalar("steps", strconv.Itoa(gen.Steps), "!!int")
	addScalar("cfg_scale", strconv.FormatFloat(gen.CfgScale, 'f', -1, 64), "!!float")
	addScalar("sampler_name", gen.SamplerName, "")
	addScalar("scheduler", gen.Scheduler, "")
	addScalar("denoise", strconv.FormatFloat(gen.Denoise, 'f', -1, 64), "!!float")
	addScalar("randomize_seed", strconv.FormatBool(gen.RandomizeSeed), "!!bool")
	if gen.PositivePrompt != "" {
		addScalar("positive_prompt", gen.PositivePrompt, "")
	}
	if gen.NegativePrompt != "" {
		addScalar("negative_prompt", gen.NegativePrompt, "")
	}

	return node
}
