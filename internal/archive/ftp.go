package archive

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/textproto"
	"path"
	"time"

	"github.com/jlaffaye/ftp"
)

// FTP archives files on an FTP server. Each Put opens its own session.
type FTP struct {
	Addr     string
	User     string
	Password string
	Root     string
	Timeout  time.Duration
}

func (f FTP) dial(ctx context.Context) (*ftp.ServerConn, error) {
	opts := []ftp.DialOption{ftp.DialWithContext(ctx)}
	if f.Timeout > 0 {
		opts = append(opts, ftp.DialWithTimeout(f.Timeout))
	}
	c, err := ftp.Dial(f.Addr, opts...)
	if err != nil {
		return nil, fmt.Errorf("dial ftp %s: %w", f.Addr, err)
	}
	if err := c.Login(f.User, f.Password); err != nil {
		_ = c.Quit()
		return nil, fmt.Errorf("ftp login: %w", err)
	}
	return c, nil
}

func (f FTP) Put(ctx context.Context, dir, name string, r io.Reader) error {
	if err := checkName("directory", dir); err != nil {
		return err
	}
	if err := checkName("file name", name); err != nil {
		return err
	}

	c, err := f.dial(ctx)
	if err != nil {
		return err
	}
	defer c.Quit()

	target := path.Join(f.Root, dir)
	if err := c.ChangeDir(target); err != nil {
		if !isNotFound(err) {
			return fmt.Errorf("change to %s: %w", target, err)
		}
		if err := c.MakeDir(target); err != nil {
			return fmt.Errorf("create %s: %w", target, err)
		}
		if err := c.ChangeDir(target); err != nil {
			return fmt.Errorf("change to %s: %w", target, err)
		}
	}

	if err := c.Stor(name, r); err != nil {
		return fmt.Errorf("store %s: %w", name, err)
	}
	return nil
}

// Ping logs in and out again.
func (f FTP) Ping(ctx context.Context) error {
	c, err := f.dial(ctx)
	if err != nil {
		return err
	}
	return c.Quit()
}

// isNotFound reports a 550 reply, which servers send for a missing directory.
func isNotFound(err error) bool {
	var tp *textproto.Error
	return errors.As(err, &tp) && tp.Code == ftp.StatusFileUnavailable
}
