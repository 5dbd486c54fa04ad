package commands

import (
	"encoding/hex"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/opd-ai/vl1/identity"
)

var secretHex string

func keygenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "keygen",
		Short: "Generate an identity, or load one from its secret, and print it",
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := loadOrGenerate(secretHex)
			if err != nil {
				return err
			}
			private, _ := id.PrivateKey()
			fmt.Fprintf(cmd.OutOrStdout(), "Address: %s\n", id.Address())
			fmt.Fprintf(cmd.OutOrStdout(), "Public:  %s\n", hex.EncodeToString(id.Marshal(nil)))
			fmt.Fprintf(cmd.OutOrStdout(), "Secret:  %s\n", hex.EncodeToString(private[:]))
			return nil
		},
	}
	cmd.Flags().StringVar(&secretHex, "secret", "", "hex X25519 private key to load instead of generating")
	return cmd
}

func loadOrGenerate(secret string) (*identity.X25519, error) {
	if secret == "" {
		return identity.Generate()
	}
	b, err := hex.DecodeString(secret)
	if err != nil {
		return nil, fmt.Errorf("secret: %w", err)
	}
	if len(b) != 32 {
		return nil, fmt.Errorf("secret: want 32 bytes, got %d", len(b))
	}
	var private [32]byte
	copy(private[:], b)
	return identity.FromPrivateKey(private)
}
