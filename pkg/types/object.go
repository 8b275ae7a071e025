package types

import "time"

// PrincipalKind distinguishes user principals from the system principal
type PrincipalKind string

const (
	PrincipalKindUser   PrincipalKind = "user"
	PrincipalKindSystem PrincipalKind = "system"
)

// SystemPrincipalName owns objects created by the platform itself
const SystemPrincipalName = "system.user"

// Principal is a user (or the system principal) that owns objects
type Principal struct {
	Id        uint          `json:"id" db:"id"`
	Username  string        `json:"username" db:"name"`
	Kind      PrincipalKind `json:"kind" db:"kind"`
	CreatedAt time.Time     `json:"created_at" db:"created_at"`
}

func (p *Principal) Name() string {
	return p.Username
}

// ObjectClasses maps every known object class to its default mime type.
// Records of any other class are legacy and cannot be decoded.
var ObjectClasses = map[string]string{
	"Note":           "application/vnd.nextthought.note",
	"Highlight":      "application/vnd.nextthought.highlight",
	"Bookmark":       "application/vnd.nextthought.bookmark",
	"Redaction":      "application/vnd.nextthought.redaction",
	"Comment":        "application/vnd.nextthought.forums.comment",
	"ContentPackage": "application/vnd.nextthought.contentpackage",
	"ContentUnit":    "application/vnd.nextthought.contentunit",
	"User":           "application/vnd.nextthought.user",
	"Community":      "application/vnd.nextthought.community",
}

// Object is a store-resident, indexable entity
type Object struct {
	Id         uint           `json:"id" db:"id"`                   // Internal ID for joins
	ExternalId string         `json:"external_id" db:"external_id"` // External UUID for API
	IntID      int64          `json:"intid" db:"intid"`             // 0 when unregistered
	Owner      string         `json:"owner" db:"owner"`
	Class      string         `json:"class" db:"class"`
	Mime       string         `json:"mime_type" db:"mime_type"`
	Payload    map[string]any `json:"payload" db:"payload"`
	SharedWith []string       `json:"shared_with"`
	Broken     bool           `json:"broken" db:"broken"`
	CreatedAt  time.Time      `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at" db:"updated_at"`
}

func (o *Object) MimeType() string {
	if o.Mime != "" {
		return o.Mime
	}
	return ObjectClasses[o.Class]
}

func (o *Object) IsBroken() bool {
	return o.Broken
}

func (o *Object) TypeName() string {
	return o.Class
}

// Field returns a named attribute, looking at the built-in columns first.
func (o *Object) Field(name string) any {
	switch name {
	case "creator":
		return o.Owner
	case "mimeType":
		return o.MimeType()
	case "sharedWith":
		return o.SharedWith
	}
	return o.Payload[name]
}
