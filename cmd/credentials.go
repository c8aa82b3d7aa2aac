package cmd

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/akyaiy/rdata-node/hooks"
	"github.com/akyaiy/rdata-node/internal/core/utils"
	"github.com/akyaiy/rdata-node/internal/server/auth"
	"github.com/spf13/cobra"
)

var (
	tokenSubject string
	tokenTTL     time.Duration
	tokenConfig  string
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Issue an access token signed with auth.jwt_secret",
	Run: func(cmd *cobra.Command, args []string) {
		c := hooks.Compositor
		if err := c.LoadEnv(); err != nil {
			log.Fatalf("env load error: %s", err)
		}
		if tokenConfig != "" {
			c.Env.ConfigPath = &tokenConfig
		}
		if err := c.LoadConf(*c.Env.ConfigPath); err != nil {
			log.Fatalf("conf load error: %s", err)
		}
		secret := utils.SafeFetch(c.Conf.Auth.JWTSecret, "")
		if secret == "" {
			log.Fatalf("auth.jwt_secret is not set")
		}
		token, err := auth.IssueToken([]byte(secret), utils.SafeFetch(c.Conf.Auth.JWTIssuer, ""), tokenSubject, tokenTTL)
		if err != nil {
			log.Fatalf("cannot issue token: %s", err)
		}
		fmt.Println(token)
	},
}

var apiKeyCmd = &cobra.Command{
	Use:   "apikey <id>",
	Short: "Generate an API key and the hash to put under auth.api_keys",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		// viper lowercases map keys read from the config file
		id := strings.ToLower(args[0])
		raw := make([]byte, 24)
		if _, err := rand.Read(raw); err != nil {
			log.Fatalf("cannot generate secret: %s", err)
		}
		secret := hex.EncodeToString(raw)
		hash, err := auth.HashSecret(secret)
		if err != nil {
			log.Fatalf("cannot hash secret: %s", err)
		}
		fmt.Printf("access token: %s.%s\n", id, secret)
		fmt.Printf("config entry: auth.api_keys.%s: %q\n", id, hash)
	},
}

func init() {
	tokenCmd.Flags().StringVarP(&tokenSubject, "subject", "s", "admin", "Token subject")
	tokenCmd.Flags().DurationVar(&tokenTTL, "ttl", time.Hour, "Token lifetime")
	tokenCmd.Flags().StringVarP(&tokenConfig, "config", "c", "", "Path to configuration file")
	rootCmd.AddCommand(tokenCmd, apiKeyCmd)
}
