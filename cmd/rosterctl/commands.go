package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"roster/internal/member/models"
	dErrors "roster/pkg/domain-errors"
)

type listOutput struct {
	Members []*models.Member `json:"members"`
	Count   int              `json:"count"`
}

func newListOutput(members []*models.Member) listOutput {
	if members == nil {
		members = []*models.Member{}
	}
	return listOutput{Members: members, Count: len(members)}
}

func (c *cli) registerCommand() *cobra.Command {
	var req models.RegisterRequest
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Register a new member",
		Args:  cobra.NoArgs,
	}
	f := cmd.Flags()
	f.StringVar(&req.PersonID, "person-id", "", "national identity number")
	f.StringVar(&req.FirstName, "first-name", "", "first name")
	f.StringVar(&req.LastName, "last-name", "", "last name")
	f.StringVar(&req.Phone, "phone", "", "phone number")
	f.StringVar(&req.Address, "address", "", "street address")
	f.StringVar(&req.VotingPlace, "voting-place", "", "assigned voting place")
	f.StringVar(&req.Table, "table", "", "voting table")
	f.StringVar(&req.MemberType, "member-type", "", "voter, leader or visualizer (default voter)")
	f.StringVar(&req.Leader, "leader", "", "name of the responsible leader")
	f.StringVar(&req.Notes, "notes", "", "free-form notes")

	cmd.RunE = c.withApp(func(cmd *cobra.Command, _ []string) error {
		id, err := c.app.Service.Register(cmd.Context(), &req)
		if err != nil {
			return err
		}
		return writeJSON(cmd.OutOrStdout(), map[string]string{"person_id": id})
	})
	return cmd
}

func (c *cli) getCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "get <person-id>",
		Short: "Show one member",
		Args:  cobra.ExactArgs(1),
		RunE: c.withApp(func(cmd *cobra.Command, args []string) error {
			m, err := c.app.Service.GetByID(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), m)
		}),
	}
}

func (c *cli) listCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List every member, newest first",
		Args:  cobra.NoArgs,
		RunE: c.withApp(func(cmd *cobra.Command, _ []string) error {
			members, err := c.app.Service.ListAll(cmd.Context())
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), newListOutput(members))
		}),
	}
}

func (c *cli) searchCommand() *cobra.Command {
	var (
		text     string
		fields   []string
		match    string
		matchAny bool
		order    string
		planOnly bool
	)
	cmd := &cobra.Command{
		Use:   "search",
		Short: "Search members by field criteria and free text",
		Example: `  rosterctl search --text ana
  rosterctl search --field votingPlace=Ateneo --field memberType=leader
  rosterctl search --field phone=3001234 --match digits --plan`,
		Args: cobra.NoArgs,
	}
	f := cmd.Flags()
	f.StringVarP(&text, "text", "q", "", "free-text term matched across fields")
	f.StringArrayVarP(&fields, "field", "f", nil, "field criterion as name=value (repeatable)")
	f.StringVar(&match, "match", "", "match mode for every field: exact, prefix, contains or digits")
	f.BoolVar(&matchAny, "any", false, "return members matching any criterion instead of all")
	f.StringVar(&order, "order", "", "newest, oldest, lastName or personId")
	f.BoolVar(&planOnly, "plan", false, "print the query plan instead of running it")

	cmd.RunE = c.withApp(func(cmd *cobra.Command, _ []string) error {
		req, err := buildSearchRequest(text, fields, match, matchAny, order)
		if err != nil {
			return err
		}
		if planOnly {
			steps, err := c.app.Engine.Plan(req)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), steps)
		}
		members, err := c.app.Service.Search(cmd.Context(), req)
		if err != nil {
			return err
		}
		return writeJSON(cmd.OutOrStdout(), newListOutput(members))
	})
	return cmd
}

func buildSearchRequest(text string, fields []string, match string, matchAny bool, order string) (models.SearchRequest, error) {
	req := models.SearchRequest{Text: text, Order: models.Order(order)}
	if matchAny {
		req.Combine = models.CombineAny
	}
	for _, kv := range fields {
		name, value, ok := strings.Cut(kv, "=")
		if !ok {
			return models.SearchRequest{}, dErrors.New(dErrors.CodeBadRequest, fmt.Sprintf("field %q must be name=value", kv))
		}
		field, ok := models.ParseField(name)
		if !ok {
			return models.SearchRequest{}, dErrors.New(dErrors.CodeBadRequest, "unknown search field "+name)
		}
		req.Criteria = append(req.Criteria, models.Criterion{Field: field, Value: value, Match: models.MatchMode(match)})
	}
	return req, nil
}

func (c *cli) statsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Count members in total and per member type",
		Args:  cobra.NoArgs,
		RunE: c.withApp(func(cmd *cobra.Command, _ []string) error {
			stats, err := c.app.Service.Stats(cmd.Context())
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), stats)
		}),
	}
}

// migrateCommand opens the configured store, which creates the postgres
// table and indexes, and checks it responds.
func (c *cli) migrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Prepare the configured store schema",
		Args:  cobra.NoArgs,
		RunE: c.withApp(func(cmd *cobra.Command, _ []string) error {
			if err := c.app.Store.Ping(cmd.Context()); err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), map[string]string{
				"backend": c.cfg.StoreBackend,
				"status":  "ready",
			})
		}),
	}
}
