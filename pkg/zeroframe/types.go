package zeroframe

import "encoding/json"

// ErrorResponse is the host's error envelope.
type ErrorResponse struct {
	Error string `json:"error"`
}

// PeerLocation is one entry of chartGetPeerLocations.
type PeerLocation struct {
	Lat     float64  `json:"lat"`
	Lon     float64  `json:"lon"`
	City    string   `json:"city"`
	Country string   `json:"country"`
	Ping    *float64 `json:"ping,omitempty"`
}

// FileRules describes what may be written to a user content file.
type FileRules struct {
	CurrentSize  int64               `json:"current_size"`
	MaxSize      int64               `json:"max_size"`
	CertSigners  map[string][]string `json:"cert_signers"`
	FilesAllowed string              `json:"files_allowed"`
	Signers      []string            `json:"signers"`
	UserAddress  string              `json:"user_address"`
}

// AnnouncerStats holds per-tracker announce statistics.
type AnnouncerStats struct {
	Status        string  `json:"status"`
	NumSuccess    int64   `json:"num_success"`
	NumRequest    int64   `json:"num_request"`
	NumError      int64   `json:"num_error"`
	TimeLastError float64 `json:"time_last_error"`
	TimeStatus    float64 `json:"time_status"`
	TimeRequest   float64 `json:"time_request"`
}

// AnnouncerInfo maps tracker address to its stats.
type AnnouncerInfo struct {
	Address string                    `json:"address,omitempty"`
	Stats   map[string]AnnouncerStats `json:"stats"`
}

// ServerInfo describes the running ZeroNet instance.
type ServerInfo struct {
	Debug          bool   `json:"debug"`
	FileserverIP   string `json:"fileserver_ip"`
	FileserverPort int    `json:"fileserver_port"`
	IPExternal     bool   `json:"ip_external"`
	Platform       string `json:"platform"`
	UIIP           string `json:"ui_ip"`
	UIPort         int    `json:"ui_port"`
	Version        string `json:"version"`
	Rev            int    `json:"rev"`
	Language       string `json:"language,omitempty"`
	Offline        bool   `json:"offline,omitempty"`
}

// SiteSettings is the settings block of SiteInfo.
type SiteSettings struct {
	Added              float64         `json:"added"`
	AjaxKey            string          `json:"ajax_key"`
	BytesRecv          int64           `json:"bytes_recv"`
	BytesSent          int64           `json:"bytes_sent"`
	Cache              json.RawMessage `json:"cache,omitempty"`
	Downloaded         *float64        `json:"downloaded,omitempty"`
	Modified           float64         `json:"modified"`
	OptionalDownloaded int64           `json:"optional_downloaded"`
	Own                bool            `json:"own"`
	Peers              int64           `json:"peers"`
	Permissions        []string        `json:"permissions"`
	Serving            bool            `json:"serving"`
	Size               int64           `json:"size"`
	SizeFilesOptional  int64           `json:"size_files_optional"`
	SizeOptional       int64           `json:"size_optional"`
}

// SiteContentSummary is the content.json summary embedded in SiteInfo.
type SiteContentSummary struct {
	Address                  string   `json:"address"`
	AddressIndex             int64    `json:"address_index"`
	BackgroundColor          string   `json:"background-color"`
	CloneRoot                string   `json:"clone_root"`
	Cloneable                bool     `json:"cloneable"`
	ClonedFrom               string   `json:"cloned_from"`
	Description              string   `json:"description"`
	Files                    int64    `json:"files"`
	FilesOptional            int64    `json:"files_optional"`
	Ignore                   string   `json:"ignore"`
	Includes                 int64    `json:"includes"`
	InnerPath                string   `json:"inner_path"`
	MergedType               string   `json:"merged_type"`
	Modified                 float64  `json:"modified"`
	Optional                 string   `json:"optional"`
	PostmessageNonceSecurity bool     `json:"postmessage_nonce_security"`
	SignsRequired            int64    `json:"signs_required"`
	Title                    string   `json:"title"`
	Translate                []string `json:"translate"`
	ZeronetVersion           string   `json:"zeronet_version"`
}

// SiteInfo describes the current site and the visiting user.
type SiteInfo struct {
	Address        string             `json:"address"`
	AddressHash    string             `json:"address_hash"`
	AddressShort   string             `json:"address_short"`
	AuthAddress    *string            `json:"auth_address,omitempty"`
	AuthKey        string             `json:"auth_key"`
	AuthKeySHA512  string             `json:"auth_key_sha512"`
	CertUserID     *string            `json:"cert_user_id,omitempty"`
	BadFiles       int64              `json:"bad_files"`
	Content        SiteContentSummary `json:"content"`
	NextSizeLimit  int64              `json:"next_size_limit"`
	Peers          int64              `json:"peers"`
	Settings       SiteSettings       `json:"settings"`
	SizeLimit      int64              `json:"size_limit"`
	StartedTaskNum int64              `json:"started_task_num"`
	Tasks          int64              `json:"tasks"`
	Workers        int64              `json:"workers"`
	Event          json.RawMessage    `json:"event,omitempty"`
}

// FeedItem is one row of feedQuery.
type FeedItem struct {
	Type      string  `json:"type"`
	Date      float64 `json:"date_added"`
	Title     string  `json:"title"`
	Body      string  `json:"body"`
	URL       string  `json:"url"`
	Site      string  `json:"site"`
	FeedName  string  `json:"feed_name"`
	SiteTitle string  `json:"site_title,omitempty"`
}

// FeedQueryResult is the reply of feedQuery.
type FeedQueryResult struct {
	Rows  []FeedItem `json:"rows"`
	Stats []any      `json:"stats,omitempty"`
	Num   int        `json:"num,omitempty"`
	Sites int        `json:"sites,omitempty"`
	Taken float64    `json:"taken,omitempty"`
}

// OptionalFile is one row of optionalFileList or the reply of optionalFileInfo.
type OptionalFile struct {
	InnerPath       string  `json:"inner_path"`
	Hash            string  `json:"hash_id,omitempty"`
	Size            int64   `json:"size"`
	IsDownloaded    int     `json:"is_downloaded"`
	IsPinned        int     `json:"is_pinned"`
	Peer            int64   `json:"peer"`
	Uploaded        int64   `json:"uploaded"`
	TimeAdded       float64 `json:"time_added"`
	TimeDownloaded  float64 `json:"time_downloaded"`
	TimeAccessed    float64 `json:"time_accessed"`
	SiteAddress     string  `json:"address,omitempty"`
	DownloadPercent float64 `json:"downloaded_percent,omitempty"`
}

// OptionalLimitStats reports optional file storage usage.
type OptionalLimitStats struct {
	Limit string  `json:"limit"`
	Used  int64   `json:"used"`
	Free  int64   `json:"free"`
	Taken float64 `json:"taken,omitempty"`
}

// BigfileUpload is the reply of bigfileUploadInit.
type BigfileUpload struct {
	URL              string `json:"url"`
	PieceSize        int64  `json:"piece_size"`
	InnerPath        string `json:"inner_path"`
	FileRelativePath string `json:"file_relative_path"`
}

// AesEncrypted is the reply of aesEncrypt: key, iv and ciphertext, all base64.
type AesEncrypted struct {
	Key       string
	IV        string
	Encrypted string
}

// UnmarshalJSON decodes the host's [key, iv, encrypted] triple.
func (a *AesEncrypted) UnmarshalJSON(data []byte) error {
	var parts [3]string
	if err := json.Unmarshal(data, &parts); err != nil {
		return err
	}
	a.Key, a.IV, a.Encrypted = parts[0], parts[1], parts[2]
	return nil
}

// MarshalJSON encodes the triple form.
func (a AesEncrypted) MarshalJSON() ([]byte, error) {
	return json.Marshal([3]string{a.Key, a.IV, a.Encrypted})
}
