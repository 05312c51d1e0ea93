package views

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"golang.org/x/term"
)

// ErrMissingInput - значение поля не задано, а спросить негде.
var ErrMissingInput = errors.New("views: missing input")

// Field - поле формы.
type Field struct {
	Key     string
	Label   string
	Default string
	Secret  bool
	// Optional - пустое значение допустимо.
	Optional bool
}

// Prompter возвращает значение поля формы.
type Prompter interface {
	Ask(ctx context.Context, f Field) (string, error)
}

// Values - значения полей, заданные заранее (флаги командной строки).
// Отсутствующее поле - ErrMissingInput; значения по умолчанию подставляет Chain.
type Values map[string]string

func (v Values) Ask(_ context.Context, f Field) (string, error) {
	if s, ok := v[f.Key]; ok {
		return s, nil
	}

	return "", fmt.Errorf("%w: %s", ErrMissingInput, f.Key)
}

// Lines - построчный ввод с терминала или из pipe.
// Секретные поля с терминала читаются без эха.
type Lines struct {
	mu  sync.Mutex
	r   *bufio.Reader
	out io.Writer

	// readSecret != nil, только если in - терминал.
	readSecret func() (string, error)
}

// NewLines создаёт Prompter поверх in; подсказки пишутся в out.
func NewLines(in io.Reader, out io.Writer) *Lines {
	l := &Lines{r: bufio.NewReader(in), out: out}

	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		fd := int(f.Fd())
		l.readSecret = func() (string, error) {
			b, err := term.ReadPassword(fd)
			fmt.Fprintln(out)
			return string(b), err
		}
	}

	return l
}

func (l *Lines) Ask(ctx context.Context, f Field) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	label := f.Label
	if f.Default != "" {
		label += " [" + f.Default + "]"
	}
	fmt.Fprintf(l.out, "%s: ", label)

	if f.Secret && l.readSecret != nil {
		s, err := l.readSecret()
		if err != nil {
			return "", fmt.Errorf("views: read %s: %w", f.Key, err)
		}
		if s == "" {
			s = f.Default
		}
		return s, nil
	}

	line, err := l.r.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		if errors.Is(err, io.EOF) {
			return "", fmt.Errorf("%w: %s", ErrMissingInput, f.Key)
		}
		return "", err
	}

	s := strings.TrimRight(line, "\r\n")
	if !f.Secret {
		s = strings.TrimSpace(s)
	}
	if s == "" {
		s = f.Default
	}

	return s, nil
}

// ReadLine читает следующую строку (команду оболочки).
func (l *Lines) ReadLine(prompt string) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	fmt.Fprint(l.out, prompt)
	line, err := l.r.ReadString('\n')
	if err != nil && line == "" {
		return "", err
	}

	return strings.TrimSpace(line), nil
}

// Chain спрашивает Prompter по очереди, пока кто-то не ответит не ErrMissingInput.
// Если не ответил никто, берётся Default необязательного поля или поля со значением по умолчанию.
type Chain []Prompter

func (c Chain) Ask(ctx context.Context, f Field) (string, error) {
	for _, p := range c {
		s, err := p.Ask(ctx, f)
		if errors.Is(err, ErrMissingInput) {
			continue
		}
		return s, err
	}

	if f.Default != "" || f.Optional {
		return f.Default, nil
	}

	return "", fmt.Errorf("%w: %s", ErrMissingInput, f.Key)
}
