package sharefile

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

const (
	endpointUsers = "users"
	employeesPath = "/sf/v3/Accounts/Employees"
	disabledName  = "Disabled"
	disabledDate  = "01/02/2006"
)

// Expand selectors for ListEmployees.
const (
	ExpandAll      = "*"
	ExpandChildren = "Children"
)

// employeePermissions are granted to every employee created by CreateEmployee.
var employeePermissions = []string{
	"canviewmysettings",
	"canresetpassword",
	"createfolders",
	"manageusers",
	"isemployee",
	"usefilebox",
	"addshared",
}

// DeleteOptions controls DeleteEmployee.
type DeleteOptions struct {
	// ReassignTo names the account that receives the deleted user's content.
	// It is resolved like GetEmployee ids. Empty discards the content.
	ReassignTo string
	// Partial selects the users/deletef op instead of users/delete.
	Partial bool
}

// ListEmployees returns the account's employees from the REST API. expand is
// the $expand selector; ExpandAll is used when empty.
func (c *Client) ListEmployees(ctx context.Context, expand string) (*EmployeeList, error) {
	if expand == "" {
		expand = ExpandAll
	}

	body, err := c.restCall(ctx, http.MethodGet, employeesPath+"?$expand="+url.QueryEscape(expand), nil)
	if err != nil {
		return nil, err
	}

	var list EmployeeList
	if err := json.Unmarshal(body, &list); err != nil {
		return nil, fmt.Errorf("sharefile: decoding employee list: %w", err)
	}

	c.logger.Debug("listed employees", slog.Int("count", len(list.Value)))

	return &list, nil
}

// GetEmployee looks up a user by email. Ids without "@" get the configured
// email domain appended.
func (c *Client) GetEmployee(ctx context.Context, id string) (*Envelope, error) {
	return c.legacyCall(ctx, legacyRequest{
		Endpoint: endpointUsers,
		Op:       "get",
		Params:   url.Values{"id": {c.employeeEmail(id)}},
	})
}

// employeeEmail qualifies a bare user id with the configured domain.
func (c *Client) employeeEmail(id string) string {
	if strings.Contains(id, "@") {
		return id
	}

	return id + "@" + c.cfg.emailDomain()
}

// CreateEmployee creates an employee with the standard permission set. An
// empty password lets the server send its own activation flow.
func (c *Client) CreateEmployee(ctx context.Context, email, firstName, lastName, password string) (*Envelope, error) {
	params := url.Values{
		"email":     {email},
		"firstname": {firstName},
		"lastname":  {lastName},
		"company":   {c.cfg.Company},
	}

	for _, p := range employeePermissions {
		params.Set(p, strconv.FormatBool(true))
	}

	params.Set("notify", strconv.FormatBool(false))
	params.Set("confirm", strconv.FormatBool(true))

	if password != "" {
		params.Set("password", password)
	}

	c.logger.Info("creating employee", slog.String("email", email))

	return c.legacyCall(ctx, legacyRequest{Endpoint: endpointUsers, Op: "create", Params: params})
}

// DeleteEmployee deletes target. A target that cannot be found counts as
// already deleted and yields a successful envelope without a delete call.
// When opts.ReassignTo cannot be resolved, ErrHoldingAccountNotFound is
// returned and nothing is deleted.
func (c *Client) DeleteEmployee(ctx context.Context, target string, opts DeleteOptions) (*Envelope, error) {
	op := "delete"
	if opts.Partial {
		op = "deletef"
	}

	employee, err := c.GetEmployee(ctx, target)
	if err != nil {
		return nil, err
	}

	if employee.Error {
		c.logger.Info("employee already absent", slog.String("target", target))
		return successEnvelope(), nil
	}

	id, err := userID(employee)
	if err != nil {
		return nil, err
	}

	params := url.Values{"id": {id}}

	if opts.ReassignTo != "" {
		owner, err := c.GetEmployee(ctx, opts.ReassignTo)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrHoldingAccountNotFound, err)
		}

		if owner.Error {
			return nil, fmt.Errorf("%w: %s", ErrHoldingAccountNotFound, opts.ReassignTo)
		}

		ownerID, err := userID(owner)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrHoldingAccountNotFound, err)
		}

		params.Set("reassignid", ownerID)
	}

	c.logger.Info("deleting employee",
		slog.String("target", target),
		slog.String("op", op),
		slog.Bool("reassign", opts.ReassignTo != ""),
	)

	return c.legacyCall(ctx, legacyRequest{Endpoint: endpointUsers, Op: op, Params: params})
}

// MarkUserDisabled renames a user to "Disabled" and stamps the company field
// with today's date.
//
// Deprecated: delete users with DeleteEmployee instead.
func (c *Client) MarkUserDisabled(ctx context.Context, userID string) (*Envelope, error) {
	today := c.now().Format(disabledDate)

	params := url.Values{
		"id":        {userID},
		"firstname": {disabledName},
		"lastname":  {disabledName},
		"company":   {fmt.Sprintf("%s(disabled on %s)", c.cfg.Company, today)},
	}

	return c.legacyCall(ctx, legacyRequest{Endpoint: endpointUsers, Op: "edit", Params: params})
}

// userID extracts the internal id from a users/get envelope.
func userID(env *Envelope) (string, error) {
	var u User
	if err := env.Decode(&u); err != nil {
		return "", err
	}

	if u.ID == "" {
		return "", fmt.Errorf("sharefile: user record has no id")
	}

	return u.ID, nil
}
