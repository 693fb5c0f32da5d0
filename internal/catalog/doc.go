// Package catalog is the synthetic domain model stored per subscription.
//
// A subscription namespace holds two records: the Catalog ("ALL"), which
// indexes categories and entries, and the DetailsCache ("DETAILS_CACHE"),
// which holds the examples of each entry. Both are generated locally by a
// Generator; no remote service is contacted.
//
// BuildListing joins the two records with the subscription credentials into
// named stream URLs and FormatListing renders them as text:
//
//	##Random Text File Format Header##
//	#NAME#<entry name> C01N02 / 1920x1080 / stereo / 00:42:17 / 3100 kbps / H264 / AAC
//	#URL#entries|<domain>|<user>|<pass>|<example id>.<ext>
package catalog
