package main

import (
	"errors"
	"os"
	"strings"

	"github.com/charmbracelet/huh"
	"golang.org/x/term"

	"github.com/vanderheijden86/familytree/pkg/config"
	"github.com/vanderheijden86/familytree/pkg/session"
)

var errNotSignedIn = errors.New("this family requires a login; run ftv in a terminal to sign in")

// isTerminal checks if stdin is connected to a terminal
func isTerminal() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}

// newSession keeps its token file in dir; an empty dir keeps it in memory.
func newSession(cfg config.Config, dir string) *session.Session {
	return session.New(session.Options{
		Passphrase: cfg.Auth.Passphrase,
		TTL:        cfg.Auth.TokenTTL,
		Dir:        dir,
	})
}

// gateFor returns the gate for cfg: open when no login is required.
func gateFor(cfg config.Config) (session.Gate, *session.Session) {
	if !cfg.Auth.Required {
		return session.Open{}, nil
	}
	s := newSession(cfg, config.StateDir())
	return s, s
}

// ensureLogin prompts for name and passphrase until the session is valid.
func ensureLogin(cfg config.Config, s *session.Session) error {
	if s == nil || s.IsAuthenticated() {
		return nil
	}
	if !isTerminal() {
		return errNotSignedIn
	}

	var name, passphrase string
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewNote().
				Title(cfg.Title()).
				Description(cfg.Tagline()),
			huh.NewInput().
				Title("姓名").
				Placeholder("请输入您的姓名").
				Value(&name).
				Validate(func(v string) error {
					if strings.TrimSpace(v) == "" {
						return errors.New("请输入姓名")
					}
					return nil
				}),
			huh.NewInput().
				Title("家族密码").
				EchoMode(huh.EchoModePassword).
				Value(&passphrase).
				Validate(func(p string) error {
					if err := s.CheckPassphrase(p); err != nil {
						return errors.New("密码错误")
					}
					return nil
				}),
		),
	).WithTheme(huh.ThemeDracula())

	if err := form.Run(); err != nil {
		return err
	}
	return s.Login(strings.TrimSpace(name), passphrase)
}
