package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/invopop/jsonschema"
	"github.com/spf13/cobra"
)

// FramescopeConfig represents configuration for the framescope tool
type FramescopeConfig struct {
	Debug           bool     `json:"debug" jsonschema:"title=Debug,description=Enable debug logging"`
	UnsafeFunctions []string `json:"unsafeFunctions" jsonschema:"title=Unsafe Functions,description=Substring denylist of overflow-prone library calls"`
	LargeStackBytes int      `json:"largeStackBytes" jsonschema:"title=Large Stack Threshold,description=Stack size in bytes above which heap allocation is suggested"`
	RandomJumpBytes int      `json:"randomJumpBytes" jsonschema:"title=Random Access Jump,description=Offset distance in bytes treated as a non-local stack access"`
}

var schemaCmd = &cobra.Command{
	Use:    "schema",
	Short:  "Generate JSON schema for configuration",
	Long:   "Generate JSON schema for the framescope configuration",
	Hidden: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		reflector := new(jsonschema.Reflector)
		bts, err := json.MarshalIndent(reflector.Reflect(&FramescopeConfig{}), "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal schema: %w", err)
		}
		fmt.Println(string(bts))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(schemaCmd)
}
