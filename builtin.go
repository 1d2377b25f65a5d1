package vcardio

func builtinScribes() []Scribe {
	text := typesOf(DataTypeText)
	uri := typesOf(DataTypeURI)

	uid := newTextScribe[UID]("UID", [3]DataType{DataTypeText, DataTypeText, DataTypeURI})
	uid.check = checkUID

	return []Scribe{
		newTextScribe[FormattedName]("FN", text),
		newNameScribe(),
		newListScribe[Nickname]("NICKNAME", V30, V40),
		newBinaryScribe[Photo]("PHOTO"),
		newDateScribe[Birthday]("BDAY"),
		newDateScribe[Anniversary]("ANNIVERSARY", V40),
		&genderScribe{newScribeBase[Gender]("GENDER", text, V40)},
		newAddressScribe(),
		newTextScribe[Label]("LABEL", text, V21, V30),
		&telScribe{newScribeBase[Telephone]("TEL", text)},
		newTextScribe[Email]("EMAIL", text),
		newTextScribe[IMPP]("IMPP", uri, V30, V40),
		newTextScribe[Language]("LANG", typesOf(DataTypeLanguageTag), V40),
		newTextScribe[Mailer]("MAILER", text, V21, V30),
		&timezoneScribe{newScribeBase[Timezone]("TZ", [3]DataType{DataTypeUTCOffset, DataTypeUTCOffset, DataTypeText})},
		&geoScribe{newScribeBase[Geo]("GEO", [3]DataType{"", DataTypeFloat, DataTypeURI})},
		newTextScribe[Title]("TITLE", text),
		newTextScribe[Role]("ROLE", text),
		newBinaryScribe[Logo]("LOGO"),
		&agentScribe{newScribeBase[Agent]("AGENT", [3]DataType{}, V21, V30)},
		&orgScribe{newScribeBase[Organization]("ORG", text)},
		newTextScribe[Member]("MEMBER", uri, V40),
		&relatedScribe{newScribeBase[Related]("RELATED", uri, V40)},
		newListScribe[Categories]("CATEGORIES", V30, V40),
		newTextScribe[Note]("NOTE", text),
		newTextScribe[ProductID]("PRODID", text, V30, V40),
		&revisionScribe{newScribeBase[Revision]("REV", [3]DataType{"", DataTypeDateTime, DataTypeTimestamp})},
		newBinaryScribe[Sound]("SOUND"),
		uid,
		&clientPIDMapScribe{newScribeBase[ClientPIDMap]("CLIENTPIDMAP", text, V40)},
		newTextScribe[URL]("URL", uri),
		newTextScribe[Source]("SOURCE", uri, V30, V40),
		newTextScribe[Kind]("KIND", text, V40),
		newTextScribe[XML]("XML", text, V40),
		newBinaryScribe[Key]("KEY"),
	}
}
