package zeroframe

import (
	"context"
	"encoding/base64"
	"errors"

	"github.com/morezero/zeroframe/pkg/reply"
	"github.com/morezero/zeroframe/pkg/semver"
)

// Parameter values the host treats as "use the default".
const (
	DefaultPrivateKey = "stored"
	DefaultInnerPath  = "content.json"
)

// File formats accepted by fileGet.
const (
	formatText   = "text"
	formatBase64 = "base64"
)

// AnnouncerInfo returns tracker statistics for the current site.
func (c *Client) AnnouncerInfo(ctx context.Context) (AnnouncerInfo, error) {
	return call[AnnouncerInfo](ctx, c, "announcerInfo")
}

// CertAdd adds a certificate to the current user. It reports false when the
// user already had it.
func (c *Client) CertAdd(ctx context.Context, domain, authType, authUserName, cert string) (bool, error) {
	return c.resultChanged(ctx, "certAdd", domain, authType, authUserName, cert)
}

// CertSelect opens the certificate selection dialog.
func (c *Client) CertSelect(acceptedDomains []string, acceptAny bool, acceptedPattern string) error {
	if acceptedDomains == nil {
		acceptedDomains = []string{}
	}
	return c.send("certSelect", acceptedDomains, acceptAny, acceptedPattern)
}

// ChannelJoin subscribes the connection to a push channel such as "siteChanged".
func (c *Client) ChannelJoin(channel string) error {
	return c.send("channelJoin", channel)
}

// DBQuery runs an SQL query against the site database and decodes each row into T.
func DBQuery[T any](ctx context.Context, c *Client, query string, params map[string]any) ([]T, error) {
	if params == nil {
		params = map[string]any{}
	}
	return call[[]T](ctx, c, "dbQuery", query, params)
}

// DirList lists a directory of the site.
func (c *Client) DirList(ctx context.Context, innerPath string) ([]string, error) {
	return call[[]string](ctx, c, "dirList", innerPath)
}

// FileDelete removes a file from the site.
func (c *Client) FileDelete(ctx context.Context, innerPath string) error {
	return c.result(ctx, "fileDelete", innerPath)
}

// FileGetOptions controls fileGet. Timeout is in seconds; zero leaves it to the host.
type FileGetOptions struct {
	Required bool
	Timeout  int
}

// FileGetString reads a file as text. A file the host does not have is
// reported as ErrFalsyResponse.
func (c *Client) FileGetString(ctx context.Context, innerPath string, opts FileGetOptions) (string, error) {
	r, err := c.Call(ctx, "fileGet", innerPath, opts.Required, formatText, opts.Timeout)
	if err != nil {
		return "", err
	}
	return c.fileContent(r)
}

// FileGetBytes reads a file through its base64 form.
func (c *Client) FileGetBytes(ctx context.Context, innerPath string, opts FileGetOptions) ([]byte, error) {
	r, err := c.Call(ctx, "fileGet", innerPath, opts.Required, formatBase64, opts.Timeout)
	if err != nil {
		return nil, err
	}
	encoded, err := c.fileContent(r)
	if err != nil {
		return nil, err
	}
	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, &Error{Kind: KindSerializationError, Cause: err, Reply: r}
	}
	return data, nil
}

// fileContent extracts file text. A file's text is not checked for the error
// envelope, since a file may legitimately hold one.
func (c *Client) fileContent(r reply.Reply) (string, error) {
	if s, ok := r.AsString(); ok {
		return s, nil
	}
	if r.IsNull() {
		return "", falsyResponse(r)
	}
	return "", c.classifier.structured(r)
}

// FileList recursively lists files under a directory.
func (c *Client) FileList(ctx context.Context, innerPath string) ([]string, error) {
	return call[[]string](ctx, c, "fileList", innerPath)
}

// FileNeed asks the host to download an optional file, waiting up to timeout seconds.
func (c *Client) FileNeed(ctx context.Context, innerPath string, timeout int) error {
	if timeout == 0 {
		return RemoteError("Timeout should not be 0")
	}
	return c.result(ctx, "fileNeed", innerPath, timeout)
}

// FileQuery runs a simple JSON query over files in a directory. An empty query
// returns whole files.
func FileQuery[T any](ctx context.Context, c *Client, dirInnerPath, query string) ([]T, error) {
	if query == "" {
		return call[[]T](ctx, c, "fileQuery", dirInnerPath)
	}
	return call[[]T](ctx, c, "fileQuery", dirInnerPath, query)
}

// FileRules returns the rules for a user content file.
func (c *Client) FileRules(ctx context.Context, innerPath string) (FileRules, error) {
	return call[FileRules](ctx, c, "fileRules", innerPath)
}

// FileWrite writes content to a file of the site.
func (c *Client) FileWrite(ctx context.Context, innerPath string, content []byte) error {
	return c.result(ctx, "fileWrite", innerPath, base64.StdEncoding.EncodeToString(content))
}

// FileWriteString writes text to a file of the site.
func (c *Client) FileWriteString(ctx context.Context, innerPath, content string) error {
	return c.FileWrite(ctx, innerPath, []byte(content))
}

// Ping checks the host answers.
func (c *Client) Ping(ctx context.Context) error {
	return c.expect(ctx, replyPong, "ping")
}

// ServerInfo describes the ZeroNet instance.
func (c *Client) ServerInfo(ctx context.Context) (ServerInfo, error) {
	return call[ServerInfo](ctx, c, "serverInfo")
}

// SiteInfo describes the current site.
func (c *Client) SiteInfo(ctx context.Context) (SiteInfo, error) {
	return call[SiteInfo](ctx, c, "siteInfo")
}

// SignOptions selects the key and content file for siteSign and sitePublish.
// Empty fields use DefaultPrivateKey and DefaultInnerPath.
type SignOptions struct {
	PrivateKey string
	InnerPath  string
}

func (o SignOptions) params() (string, string) {
	key, path := o.PrivateKey, o.InnerPath
	if key == "" {
		key = DefaultPrivateKey
	}
	if path == "" {
		path = DefaultInnerPath
	}
	return key, path
}

// SitePublish publishes a content file to peers, signing it first when sign is set.
func (c *Client) SitePublish(ctx context.Context, opts SignOptions, sign bool) error {
	key, path := opts.params()
	return c.result(ctx, "sitePublish", key, path, sign)
}

// SiteReload reloads content.json from disk.
func (c *Client) SiteReload(ctx context.Context) error {
	return c.result(ctx, "siteReload")
}

// SiteSign signs a content file.
func (c *Client) SiteSign(ctx context.Context, opts SignOptions, removeMissingOptional bool) error {
	key, path := opts.params()
	return c.result(ctx, "siteSign", key, path, removeMissingOptional)
}

// SiteUpdate asks the host to check peers for updates of address, or of the
// current site when address is empty.
func (c *Client) SiteUpdate(address string) error {
	if address == "" {
		return c.send("siteUpdate")
	}
	return c.send("siteUpdate", address)
}

// UserGetSettings returns the user's settings for this site.
func UserGetSettings[T any](ctx context.Context, c *Client) (T, error) {
	return call[T](ctx, c, "userGetSettings")
}

// UserSetSettings stores the user's settings for this site.
func (c *Client) UserSetSettings(ctx context.Context, settings any) error {
	if settings == nil {
		return SerializationError(errors.New("settings must not be nil"))
	}
	return c.result(ctx, "userSetSettings", settings)
}

// RequireServer fetches serverInfo and checks it against a requirement such as
// ">=0.7.0 rev>=4500".
func (c *Client) RequireServer(ctx context.Context, requirement string) (ServerInfo, error) {
	req, err := semver.ParseRequirement(requirement)
	if err != nil {
		return ServerInfo{}, err
	}
	info, err := c.ServerInfo(ctx)
	if err != nil {
		return info, err
	}
	return info, semver.Check(req, semver.Server{Version: info.Version, Rev: info.Rev})
}
