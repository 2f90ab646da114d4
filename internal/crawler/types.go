package crawler

// RawAd is one listing record exactly as it appears in the page's embedded
// data block, before any field mapping.
type RawAd = map[string]interface{}

// Images holds the photo references of an ad. Full photo URLs are assembled
// from BaseURI, the ad slug and each image id at send time.
type Images struct {
	IDs     []string `json:"ids"`
	BaseURI string   `json:"base_uri"`
}

// Category is the listing category assigned by the site.
type Category struct {
	ID         int64  `json:"id"`
	Name       string `json:"name"`
	ParentName string `json:"parent_name,omitempty"`
}

// Ad represents one house listing. It is read-only once mapped; the
// site-assigned ID identifies the same listing across pages and runs.
type Ad struct {
	ID             string   `json:"id"`
	Slug           string   `json:"slug"`
	Title          string   `json:"title"`
	Description    string   `json:"description,omitempty"`
	Details        []string `json:"details,omitempty"`
	Subtitle       string   `json:"subtitle,omitempty"`
	ImageURL       string   `json:"img_url,omitempty"`
	Images         Images   `json:"images"`
	Price          string   `json:"price,omitempty"`
	Discount       int64    `json:"discount,omitempty"`
	Timestamp      string   `json:"timestamp,omitempty"`
	LastBumpUpDate string   `json:"last_bump_up_date,omitempty"`
	Category       Category `json:"category"`
}

// adURLPrefix is where the site hosts ad detail pages.
const adURLPrefix = "https://ikman.lk/en/ad/"

// DetailURL returns the ad's detail page link, or "" when the slug is unknown.
func (a Ad) DetailURL() string {
	if a.Slug == "" {
		return ""
	}
	return adURLPrefix + a.Slug
}

// photoVariant is the server-side crop the site serves for gallery photos.
const photoVariant = "620/466/fitted.jpg"

// PhotoURLs assembles the ad's photo URLs: the cover image first when the
// record carries one, then one URL per gallery image id, duplicates dropped.
// At most max URLs are returned; max <= 0 means no cap.
func (a Ad) PhotoURLs(max int) []string {
	var urls []string
	if a.ImageURL != "" {
		urls = append(urls, a.ImageURL)
	}
	if a.Images.BaseURI != "" {
		for _, id := range a.Images.IDs {
			if max > 0 && len(urls) >= max {
				break
			}
			url := a.Images.BaseURI + "/" + a.Slug + "/" + id + "/" + photoVariant
			if !containsString(urls, url) {
				urls = append(urls, url)
			}
		}
	}
	if max > 0 && len(urls) > max {
		urls = urls[:max]
	}
	return urls
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// SearchMeta carries the pagination metadata found next to the ad records.
// It is best effort: fields are zero when the page omits them.
type SearchMeta struct {
	Total int `json:"total"`
	Page  int `json:"page"`
}

// Crawler is the contract for listing sources.
type Crawler interface {
	// FetchAds returns the filtered, de-duplicated ads for one crawl run.
	FetchAds() ([]Ad, error)

	// GetName returns the crawler's name for logging and identification
	GetName() string

	// GetProvider returns the provider name for the crawler
	GetProvider() string
}

// PageFetcher retrieves the raw HTML of one search page.
type PageFetcher interface {
	Fetch(url string) (string, error)
}
