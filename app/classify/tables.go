package classify

// domainTopics maps registered domains (leading "www." stripped) to a topic.
// Curated by hand; a feedback loop correcting these is out of scope.
var domainTopics = map[string]string{
	"github.com":            "programming",
	"gitlab.com":            "programming",
	"stackoverflow.com":     "programming",
	"news.ycombinator.com":  "technology",
	"arstechnica.com":       "technology",
	"techcrunch.com":        "technology",
	"wired.com":             "technology",
	"theverge.com":          "technology",
	"nature.com":            "science",
	"sciencedaily.com":      "science",
	"phys.org":              "science",
	"nasa.gov":              "space",
	"space.com":             "space",
	"esa.int":               "space",
	"arxiv.org":             "science",
	"smithsonianmag.com":    "history",
	"historytoday.com":      "history",
	"atlasobscura.com":      "curiosities",
	"mentalfloss.com":       "curiosities",
	"behance.net":           "design",
	"dribbble.com":          "design",
	"colossal.com":          "art",
	"artsy.net":             "art",
	"pitchfork.com":         "music",
	"bandcamp.com":          "music",
	"imdb.com":              "film",
	"rogerebert.com":        "film",
	"500px.com":             "photography",
	"petapixel.com":         "photography",
	"goodreads.com":         "literature",
	"lithub.com":            "literature",
	"plato.stanford.edu":    "philosophy",
	"psychologytoday.com":   "psychology",
	"webmd.com":             "health",
	"seriouseats.com":       "food",
	"bonappetit.com":        "food",
	"lonelyplanet.com":      "travel",
	"nationalgeographic.com": "nature",
	"audubon.org":           "animals",
	"economist.com":         "economics",
	"bloomberg.com":         "business",
	"investopedia.com":      "finance",
	"instructables.com":     "diy",
	"ravelry.com":           "crafts",
	"ign.com":               "gaming",
	"polygon.com":           "gaming",
	"espn.com":              "sports",
	"xkcd.com":              "comics",
	"theonion.com":          "humor",
	"reuters.com":           "news",
	"apnews.com":            "news",
}

type keywordEntry struct {
	topic    string
	keywords []string
}

// keywordTopics is checked in order; every entry whose phrases appear in the
// combined url+title+description text contributes its topic.
var keywordTopics = []keywordEntry{
	{"programming", []string{"programming", "software", "developer", "coding", "javascript", "python", "golang", "compiler", "api "}},
	{"technology", []string{"technology", "tech ", "gadget", "artificial intelligence", "machine learning", "startup", "computer"}},
	{"space", []string{"space", "nasa", "astronaut", "rocket", "galaxy", "exoplanet", "mars "}},
	{"astronomy", []string{"astronomy", "telescope", "nebula", "supernova", "black hole"}},
	{"science", []string{"science", "research", "study finds", "experiment", "scientist"}},
	{"physics", []string{"physics", "quantum", "particle", "relativity"}},
	{"biology", []string{"biology", "evolution", "genome", "species", "dna "}},
	{"chemistry", []string{"chemistry", "molecule", "chemical"}},
	{"mathematics", []string{"mathematics", "math ", "theorem", "geometry", "equation"}},
	{"history", []string{"history", "ancient", "medieval", "archive", "century"}},
	{"archaeology", []string{"archaeology", "excavation", "artifact", "ruins"}},
	{"art", []string{"art ", "artist", "painting", "sculpture", "gallery", "museum"}},
	{"design", []string{"design", "typography", "ux ", "ui "}},
	{"music", []string{"music", "album", "concert", "song", "band "}},
	{"film", []string{"film", "movie", "cinema", "documentary"}},
	{"photography", []string{"photography", "photographer", "camera", "photo essay"}},
	{"literature", []string{"literature", "novel", "poetry", "book review", "author"}},
	{"philosophy", []string{"philosophy", "ethics", "metaphysics", "philosopher"}},
	{"psychology", []string{"psychology", "cognitive", "behavior", "mental health"}},
	{"health", []string{"health", "medicine", "medical", "disease", "wellness"}},
	{"fitness", []string{"fitness", "workout", "exercise", "running"}},
	{"food", []string{"food", "recipe", "cooking", "cuisine", "restaurant"}},
	{"travel", []string{"travel", "journey", "destination", "tourism"}},
	{"nature", []string{"nature", "wilderness", "forest", "ocean", "wildlife"}},
	{"environment", []string{"environment", "climate", "sustainability", "conservation"}},
	{"animals", []string{"animal", "bird", "mammal", "insect"}},
	{"politics", []string{"politics", "election", "policy", "government"}},
	{"economics", []string{"economics", "economy", "inflation", "trade "}},
	{"business", []string{"business", "company", "industry", "entrepreneur"}},
	{"finance", []string{"finance", "investing", "stock market", "banking"}},
	{"education", []string{"education", "learning", "teaching", "university", "course"}},
	{"diy", []string{"diy", "how to make", "build your own", "woodworking"}},
	{"crafts", []string{"craft", "knitting", "pottery", "handmade"}},
	{"gaming", []string{"gaming", "video game", "gameplay", "nintendo", "playstation"}},
	{"sports", []string{"sports", "football", "basketball", "tennis", "olympics"}},
	{"culture", []string{"culture", "tradition", "festival", "heritage"}},
	{"language", []string{"language", "linguistics", "etymology", "grammar"}},
	{"architecture", []string{"architecture", "building", "brutalist", "urban design"}},
	{"engineering", []string{"engineering", "mechanical", "bridge", "infrastructure"}},
	{"comics", []string{"comic", "manga", "graphic novel", "webcomic"}},
	{"humor", []string{"humor", "funny", "satire", "parody"}},
	{"news", []string{"breaking news", "headline", "report "}},
	{"writing", []string{"writing", "essay", "blog post", "journalism"}},
}

// defaultTopic is the catch-all assigned when nothing else matches.
const defaultTopic = "curiosities"
