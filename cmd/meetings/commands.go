package main

import (
	"flag"
	"io"
	"sort"

	"github.com/evgeniyfimushkin/event-planner/internal/views"
)

// option - флаг команды, значение которого уходит в поле формы key.
type option struct {
	key   string
	usage string
}

type command struct {
	path    string
	help    string
	options []option
}

var commands = map[string]command{
	"login": {path: views.PathLogin, help: "sign in", options: []option{
		{"username", "user name"},
		{"password", "password (prompted when omitted)"},
	}},
	"register": {path: views.PathRegister, help: "create an account", options: []option{
		{"username", "user name"},
		{"email", "email"},
		{"password", "password (prompted when omitted)"},
	}},
	"logout":   {path: views.PathLogout, help: "sign out and forget the stored tokens"},
	"status":   {path: views.PathStatus, help: "show the server, session and routes"},
	"events":   {path: views.PathEvents, help: "list events"},
	"calendar": {path: views.PathCalendar, help: "show subscribed events of the current month"},
	"create-event": {path: views.PathCreateEvent, help: "create an event", options: []option{
		{"name", "event name"},
		{"description", "description"},
		{"category", "category"},
		{"max", "max participants"},
		{"city", "city"},
		{"address", "address"},
		{"lat", "latitude"},
		{"lon", "longitude"},
		{"start", "start time, " + views.TimeLayout},
		{"end", "end time, " + views.TimeLayout},
	}},
	"subscribe": {path: views.PathSubscribe, help: "subscribe to an event", options: []option{
		{"event", "event id"},
		{"comment", "comment"},
	}},
	"unsubscribe": {path: views.PathUnsubscribe, help: "cancel a subscription", options: []option{
		{"event", "event id"},
	}},
}

func commandNames() []string {
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)

	return names
}

// parse разбирает флаги команды. В Values попадают только явно заданные флаги,
// остальные поля спрашиваются или берутся по умолчанию.
func (c command) parse(args []string, stderr io.Writer) (views.Values, error) {
	fs := flag.NewFlagSet(c.path, flag.ContinueOnError)
	fs.SetOutput(stderr)

	raw := make(map[string]*string, len(c.options))
	for _, o := range c.options {
		raw[o.key] = fs.String(o.key, "", o.usage)
	}
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	values := views.Values{}
	fs.Visit(func(f *flag.Flag) { values[f.Name] = *raw[f.Name] })

	return values, nil
}
