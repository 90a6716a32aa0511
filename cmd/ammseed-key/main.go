// Command ammseed-key writes the deployer's private key to an encrypted key
// file that ammseed reads through wallet.encrypted_key_path.
//
// The key is taken from AMMSEED_WALLET_PRIVATE_KEY or prompted for without
// echo. The password is taken from AMMSEED_WALLET_KEY_PASSWORD or prompted for
// twice.
package main

import (
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/alanyoungcy/ammseed/internal/crypto"
)

func main() {
	out := flag.String("out", "ammseed.key.json", "path of the encrypted key file to create")
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stderr, nil))

	key, err := secret("AMMSEED_WALLET_PRIVATE_KEY", "Private key (hex): ", false)
	if err != nil {
		logger.Error("read private key", slog.String("error", err.Error()))
		os.Exit(1)
	}
	password, err := secret("AMMSEED_WALLET_KEY_PASSWORD", "Password: ", true)
	if err != nil {
		logger.Error("read password", slog.String("error", err.Error()))
		os.Exit(1)
	}

	if err := crypto.WriteEncryptedKey(*out, key, password); err != nil {
		logger.Error("write key file", slog.String("path", *out), slog.String("error", err.Error()))
		os.Exit(1)
	}
	signer, err := crypto.NewSigner(key, 1)
	if err != nil {
		logger.Error("derive address", slog.String("error", err.Error()))
		os.Exit(1)
	}
	logger.Info("encrypted key written",
		slog.String("path", *out),
		slog.String("address", signer.Address().Hex()),
	)
}

// secret returns the value of env when set, otherwise reads it from the
// terminal without echo. confirm asks for the value a second time.
func secret(env, prompt string, confirm bool) (string, error) {
	if v := strings.TrimSpace(os.Getenv(env)); v != "" {
		return v, nil
	}
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", fmt.Errorf("%s is not set and stdin is not a terminal", env)
	}

	v, err := readHidden(fd, prompt)
	if err != nil {
		return "", err
	}
	if v == "" {
		return "", errors.New("empty input")
	}
	if confirm {
		again, err := readHidden(fd, "Repeat "+strings.ToLower(prompt))
		if err != nil {
			return "", err
		}
		if again != v {
			return "", errors.New("inputs do not match")
		}
	}
	return v, nil
}

func readHidden(fd int, prompt string) (string, error) {
	fmt.Fprint(os.Stderr, prompt)
	b, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("terminal input: %w", err)
	}
	return strings.TrimSpace(string(b)), nil
}
