package index

import "github.com/beam-cloud/metacatalog/pkg/catalog"

// Catalog names
const (
	MetadataCatalog = "metadata"
	LibraryCatalog  = "library"
	EntityCatalog   = "entities"
)

// MetadataCatalogDef indexes user generated content.
func MetadataCatalogDef() CatalogDef {
	return CatalogDef{
		Name:  MetadataCatalog,
		Class: ClassDeferred,
		Indexes: []IndexDef{
			{Name: catalog.IndexMimeType, Kind: catalog.IndexKindValue, Extract: MimeTypeValues},
			{Name: "creator", Kind: catalog.IndexKindValue, Extract: FieldValues("creator")},
			{Name: "containerId", Kind: catalog.IndexKindValue, Extract: FieldValues("containerId")},
			{Name: "sharedWith", Kind: catalog.IndexKindKeyword, Extract: FieldValues("sharedWith")},
			{Name: "taggedTo", Kind: catalog.IndexKindKeyword, Extract: FieldValues("taggedTo")},
			{
				Name: "topics",
				Kind: catalog.IndexKindTopic,
				Filters: []FilterDef{
					{Name: "isUserGeneratedData", Match: FieldTrue("isUserGeneratedData")},
					{Name: "isTopLevelContent", Match: FieldTrue("isTopLevelContent")},
					{Name: "isDeleted", Match: FieldTrue("isDeleted")},
				},
			},
		},
	}
}

// LibraryCatalogDef indexes content-library packages and their units.
func LibraryCatalogDef() CatalogDef {
	return CatalogDef{
		Name:  LibraryCatalog,
		Class: ClassEdit,
		Indexes: []IndexDef{
			{Name: catalog.IndexMimeType, Kind: catalog.IndexKindValue, Extract: MimeTypeValues},
			{Name: "ntiid", Kind: catalog.IndexKindValue, Extract: FieldValues("ntiid")},
			{Name: "containers", Kind: catalog.IndexKindKeyword, Extract: FieldValues("containers")},
		},
	}
}

// EntityCatalogDef indexes principals and communities.
func EntityCatalogDef() CatalogDef {
	return CatalogDef{
		Name:  EntityCatalog,
		Class: ClassEdit,
		Indexes: []IndexDef{
			{Name: "username", Kind: catalog.IndexKindValue, Extract: FieldValues("username")},
			{Name: "email", Kind: catalog.IndexKindValue, Extract: FieldValues("email")},
			{Name: "realname", Kind: catalog.IndexKindValue, Extract: FieldValues("realname")},
			{
				Name: "topics",
				Kind: catalog.IndexKindTopic,
				Filters: []FilterDef{
					{Name: "emailVerified", Match: FieldTrue("emailVerified")},
					{Name: "optInEmailCommunication", Match: FieldTrue("optInEmailCommunication")},
				},
			},
		},
	}
}
