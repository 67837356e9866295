package resource

const (
	name225   = "min=2,max=225"
	title225  = "min=1,max=225"
	short225  = "max=225"
	isoDate   = "datetime=2006-01-02"
	longText  = "max=20000"
	optionURL = "url,max=2048"
)

func text(name, label, rules string) Field {
	return Field{Name: name, Label: label, Type: String, Rules: rules}
}

func nullableText(name, label, rules string) Field {
	return Field{Name: name, Label: label, Type: String, Nullable: true, Rules: rules}
}

func integer(name, label, rules string) Field {
	return Field{Name: name, Label: label, Type: Integer, Rules: rules}
}

func number(name, label, rules string) Field {
	return Field{Name: name, Label: label, Type: Number, Rules: rules}
}

func ref(name, label, target string) Field {
	return Field{Name: name, Label: label, Type: Integer, Nullable: true, Rules: "min=1", Ref: target}
}

func required(f Field) Field {
	f.Required = true
	return f
}

func describe(f Field, description string) Field {
	f.Description = description
	return f
}

var (
	Users = &Descriptor{
		Path: "users", Table: "users", Name: "User", Key: "user", Tag: "Users",
		Fields: []Field{
			required(text("first_name", "First Name", name225)),
			required(text("last_name", "Last Name", name225)),
			required(text("username", "Username", name225)),
			required(text("email", "Email", "min=12,max=225,email")),
			// bcrypt only reads the first 72 bytes.
			describe(Field{
				Name: "password", Label: "Password", Type: String,
				Required: true, WriteOnly: true, Rules: "min=8,max=72",
			}, "Write-only. Stored as a bcrypt hash."),
		},
	}

	Artists = &Descriptor{
		Path: "artists", Table: "artists", Name: "Artist", Key: "artist", Tag: "Artists",
		Fields: []Field{
			required(text("first_name", "First Name", title225)),
			required(text("last_name", "Last Name", title225)),
			required(text("stage_name", "Stage Name", title225)),
			describe(nullableText("bio", "Bio", "max=5000"), "Artist biography"),
			describe(nullableText("image", "Image", optionURL), "Artist image URL"),
			describe(nullableText("genre", "Genre", "max=100"), "Artist music genre"),
			describe(ref("user_id", "User", "users"), "Platform user managing this artist"),
		},
	}

	RecordLabels = &Descriptor{
		Path: "record-labels", Table: "record_labels", Name: "Record label", Key: "record_label", Tag: "Record Labels",
		Fields: []Field{
			required(text("name", "Name", name225)),
			nullableText("website_url", "Website URL", optionURL),
			nullableText("address", "Address", short225),
			nullableText("city", "City", short225),
			nullableText("state", "State", short225),
			nullableText("country", "Country", short225),
		},
		Relations: []Relation{
			{Field: "signed_artists", Label: "Signed Artists", Target: "artists", JoinTable: "record_label_artists"},
			{Field: "in_house_albums", Label: "In-house Albums", Target: "albums", JoinTable: "record_label_albums"},
			{Field: "contracts", Label: "Contracts", Target: "contracts", JoinTable: "record_label_contracts"},
		},
	}

	Albums = &Descriptor{
		Path: "albums", Table: "albums", Name: "Album", Key: "album", Tag: "Albums",
		Fields: []Field{
			required(text("title", "Title", title225)),
			describe(nullableText("release_date", "Release Date", isoDate), "YYYY-MM-DD"),
			nullableText("genre", "Genre", "max=100"),
			nullableText("cover_image", "Cover Image", optionURL),
			ref("artist_id", "Artist", "artists"),
			ref("record_label_id", "Record Label", "record-labels"),
		},
		Relations: []Relation{
			{Field: "tracks", Label: "Tracks", Target: "tracks", JoinTable: "album_tracks"},
		},
	}

	Tracks = &Descriptor{
		Path: "tracks", Table: "tracks", Name: "Track", Key: "track", Tag: "Tracks",
		Fields: []Field{
			required(text("title", "Title", title225)),
			describe(integer("duration_seconds", "Duration", "min=1"), "Length in seconds"),
			nullableText("genre", "Genre", "max=100"),
			nullableText("lyrics", "Lyrics", longText),
			ref("artist_id", "Artist", "artists"),
		},
	}

	Contracts = &Descriptor{
		Path: "contracts", Table: "contracts", Name: "Contract", Key: "contract", Tag: "Contracts",
		Fields: []Field{
			required(text("title", "Title", name225)),
			required(Field{Name: "artist_id", Label: "Artist", Type: Integer, Rules: "min=1", Ref: "artists"}),
			ref("record_label_id", "Record Label", "record-labels"),
			describe(required(text("start_date", "Start Date", isoDate)), "YYYY-MM-DD"),
			describe(nullableText("end_date", "End Date", isoDate), "YYYY-MM-DD"),
			nullableText("terms", "Terms", longText),
			describe(number("value", "Value", "min=0"), "Contract value"),
		},
	}

	Tours = &Descriptor{
		Path: "tours", Table: "tours", Name: "Tour", Key: "tour", Tag: "Tours",
		Fields: []Field{
			required(text("name", "Name", name225)),
			nullableText("description", "Description", "max=5000"),
			nullableText("start_date", "Start Date", isoDate),
			nullableText("end_date", "End Date", isoDate),
			ref("artist_id", "Artist", "artists"),
		},
	}

	Venues = &Descriptor{
		Path: "venues", Table: "venues", Name: "Venue", Key: "venue", Tag: "Venues",
		Fields: []Field{
			required(text("name", "Name", name225)),
			nullableText("address", "Address", short225),
			required(text("city", "City", title225)),
			nullableText("state", "State", short225),
			required(text("country", "Country", name225)),
			integer("capacity", "Capacity", "min=0"),
		},
	}

	Finance = &Descriptor{
		Path: "finance", Table: "finance_records", Name: "Finance record", Key: "finance_record", Tag: "Finance",
		Fields: []Field{
			required(text("type", "Type", "oneof=income expense")),
			required(number("amount", "Amount", "min=0")),
			describe(text("currency", "Currency", "len=3,alpha"), "ISO 4217 code"),
			nullableText("description", "Description", "max=5000"),
			nullableText("transaction_date", "Transaction Date", isoDate),
			ref("artist_id", "Artist", "artists"),
		},
	}

	Merch = &Descriptor{
		Path: "merch", Table: "merchandise", Name: "Merchandise", Key: "merchandise", Tag: "Merchandise",
		Fields: []Field{
			required(text("name", "Name", name225)),
			nullableText("description", "Description", "max=5000"),
			required(number("price", "Price", "min=0")),
			integer("stock", "Stock", "min=0"),
			ref("artist_id", "Artist", "artists"),
		},
	}

	Accolades = &Descriptor{
		Path: "accolades", Table: "accolades", Name: "Accolade", Key: "accolade", Tag: "Accolades",
		Fields: []Field{
			required(text("title", "Title", name225)),
			nullableText("awarding_body", "Awarding Body", short225),
			nullableText("category", "Category", short225),
			integer("year", "Year", "min=1900,max=2100"),
			ref("artist_id", "Artist", "artists"),
		},
	}

	SocialMedia = &Descriptor{
		Path: "social-media", Table: "social_media", Name: "Social media profile", Key: "social_media", Tag: "Social Media",
		Fields: []Field{
			required(text("platform", "Platform", "min=2,max=50")),
			required(text("handle", "Handle", title225)),
			nullableText("url", "URL", optionURL),
			integer("followers", "Followers", "min=0"),
			ref("artist_id", "Artist", "artists"),
		},
	}
)

// Default returns the registry of every resource the API serves, ordered so
// that referenced tables are declared before the tables pointing at them.
func Default() *Registry {
	r, err := NewRegistry(
		Users,
		Artists,
		RecordLabels,
		Tracks,
		Albums,
		Contracts,
		Tours,
		Venues,
		Finance,
		Merch,
		Accolades,
		SocialMedia,
	)
	if err != nil {
		panic(err)
	}
	return r
}
