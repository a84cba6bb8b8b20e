package domain

// KeyPrefix is the namespace for every key ideadex writes to the cache store.
const KeyPrefix = "ideadex:"
