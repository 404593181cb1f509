package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/MrEthical07/identity/password"
	"github.com/samber/oops"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var stdinIsTerminal = func() bool { return term.IsTerminal(int(os.Stdin.Fd())) }

func newHashPasswordCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "hash-password",
		Short: "Hash a password with the configured algorithm",
		Long: `Read a password (without echo on a terminal, otherwise the first line
of standard input) and print its hash, for seeding accounts such as admins
directly into the credential store.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := opts.load(cmd)
			if err != nil {
				return err
			}
			hasher, err := password.New(password.Config{
				Algorithm:  password.Algorithm(strings.ToLower(cfg.Password.Algorithm)),
				BcryptCost: cfg.Password.BcryptCost,
				Argon2:     password.DefaultArgon2Config(),
			})
			if err != nil {
				return oops.Code("CONFIG_INVALID").Wrap(err)
			}

			pw, err := readPassword(cmd)
			if err != nil {
				return err
			}
			if len(pw) < cfg.Password.MinLength {
				return oops.Code("PASSWORD_TOO_SHORT").Errorf("password must be at least %d characters", cfg.Password.MinLength)
			}

			hash, err := hasher.Hash(pw)
			if err != nil {
				return oops.Code("HASH_FAILED").Wrap(err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), hash)
			return nil
		},
	}
}

func readPassword(cmd *cobra.Command) (string, error) {
	if !stdinIsTerminal() {
		line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
		if err != nil && err != io.EOF {
			return "", oops.Code("PASSWORD_READ_FAILED").Wrap(err)
		}
		return strings.TrimRight(line, "\r\n"), nil
	}

	fd := int(os.Stdin.Fd())
	fmt.Fprint(cmd.ErrOrStderr(), "Password: ")
	first, err := term.ReadPassword(fd)
	fmt.Fprintln(cmd.ErrOrStderr())
	if err != nil {
		return "", oops.Code("PASSWORD_READ_FAILED").Wrap(err)
	}
	fmt.Fprint(cmd.ErrOrStderr(), "Confirm: ")
	second, err := term.ReadPassword(fd)
	fmt.Fprintln(cmd.ErrOrStderr())
	if err != nil {
		return "", oops.Code("PASSWORD_READ_FAILED").Wrap(err)
	}
	if string(first) != string(second) {
		return "", oops.Code("PASSWORD_MISMATCH").Errorf("passwords do not match")
	}
	return string(first), nil
}
